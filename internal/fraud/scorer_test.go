package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jimezsa/jobmatch/internal/models"
	"github.com/rs/zerolog"
)

func intPtr(v int) *int { return &v }

func cleanPosting() models.JobPosting {
	return models.JobPosting{
		SourceURL:          "https://fr.indeed.com/rc/clk?jk=1",
		Title:              "Développeur Go",
		CompanyName:        "Acme",
		Description:        strings.Repeat("Vous rejoindrez une équipe produit sur une plateforme de données. ", 3),
		EducationRequired:  models.EducationBac5,
		ExperienceRequired: intPtr(3),
		Salary:             models.SalaryAmount(50000),
	}
}

func codes(indicators []models.FraudIndicator) map[string]bool {
	out := map[string]bool{}
	for _, ind := range indicators {
		out[ind.Code] = true
	}
	return out
}

func TestCleanPostingScoresZero(t *testing.T) {
	result := NewScorer(nil, zerolog.Nop()).Score(context.Background(), cleanPosting())
	if result.Probability != 0 || len(result.Indicators) != 0 {
		t.Fatalf("expected a clean score, got %v %+v", result.Probability, result.Indicators)
	}
	if result.Risk != RiskVeryLow {
		t.Fatalf("unexpected risk: %s", result.Risk)
	}
}

func TestObviousFraudFixture(t *testing.T) {
	p := models.JobPosting{
		SourceURL:   "https://x.test/job/1",
		Title:       "Junior Developer",
		CompanyName: "",
		Description: "",
		Salary:      models.SalaryAmount(150000),
	}
	result := NewScorer(nil, zerolog.Nop()).Score(context.Background(), p)

	got := codes(result.Indicators)
	for _, code := range []string{CodeMissingCompany, CodeVagueDescription, CodeTooGoodToBeTrue} {
		if !got[code] {
			t.Fatalf("expected indicator %s, got %+v", code, result.Indicators)
		}
	}
	if result.Probability != 1 {
		t.Fatalf("expected the sum to clamp to 1, got %v", result.Probability)
	}
	if result.Risk != RiskVeryHigh || result.Risk.Class() != "danger" {
		t.Fatalf("unexpected risk: %s", result.Risk)
	}
}

func TestIndividualRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *models.JobPosting)
		code   string
		weight float64
	}{
		{"unspecified company", func(p *models.JobPosting) { p.CompanyName = "Unspecified" }, CodeMissingCompany, 0.8},
		{"short company", func(p *models.JobPosting) { p.CompanyName = "AB" }, CodeMissingCompany, 0.8},
		{"short description", func(p *models.JobPosting) { p.Description = "Poste à pourvoir." }, CodeVagueDescription, 0.5},
		{"personal info", func(p *models.JobPosting) {
			p.Description += " Merci d'envoyer votre numéro de sécurité sociale et une copie de votre passeport."
		}, CodePersonalInfo, 0.9},
		{"urgency", func(p *models.JobPosting) { p.Description += " Poste URGENT, ne tardez pas !" }, CodeUrgencyPressure, 0.7},
		{"no requirements", func(p *models.JobPosting) {
			p.EducationRequired = models.EducationUnspecified
			p.ExperienceRequired = nil
		}, CodeNoRequirements, 0.4},
		{"too good", func(p *models.JobPosting) {
			p.Title = "Stagiaire marketing"
			p.Salary = models.SalaryRange(90000, 120000)
		}, CodeTooGoodToBeTrue, 0.7},
		{"suspicious domain", func(p *models.JobPosting) { p.SourceURL = "https://jobs.scam.com/offer/9" }, CodeSuspiciousContact, 0.9},
	}

	scorer := NewScorer(nil, zerolog.Nop())
	for _, tc := range cases {
		p := cleanPosting()
		tc.mutate(&p)
		result := scorer.Score(context.Background(), p)
		if len(result.Indicators) != 1 || result.Indicators[0].Code != tc.code {
			t.Fatalf("%s: expected only %s, got %+v", tc.name, tc.code, result.Indicators)
		}
		if math.Abs(result.Probability-tc.weight) > 1e-9 {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.weight, result.Probability)
		}
	}
}

func TestPersonalInfoCountsOnce(t *testing.T) {
	p := cleanPosting()
	p.Description += " Frais de dossier payables par carte bancaire, joindre votre passport."
	result := NewScorer(nil, zerolog.Nop()).Score(context.Background(), p)
	if len(result.Indicators) != 1 || math.Abs(result.Probability-0.9) > 1e-9 {
		t.Fatalf("expected one personal info hit, got %v %+v", result.Probability, result.Indicators)
	}
}

func TestPoorLanguage(t *testing.T) {
	if !poorLanguage("rapidement evidemment totalement vraiment poste") {
		t.Fatalf("expected a high -ment ratio to be flagged")
	}
	if poorLanguage("un poste de developpeur pour travailler sur des services") {
		t.Fatalf("unexpected poor language flag")
	}
}

func TestJuniorTitleDoesNotMatchInternational(t *testing.T) {
	p := cleanPosting()
	p.Title = "Responsable international"
	p.Salary = models.SalaryAmount(150000)
	if got := codes(NewScorer(nil, zerolog.Nop()).Score(context.Background(), p).Indicators); got[CodeTooGoodToBeTrue] {
		t.Fatalf("international is not an intern title")
	}
}

type fixedModel struct {
	score float64
	err   error
}

func (m fixedModel) PredictProbability(context.Context, Features) (float64, error) {
	return m.score, m.err
}

func TestModelBlending(t *testing.T) {
	p := cleanPosting()
	p.Description = "Court."

	rulesOnly := NewScorer(nil, zerolog.Nop()).Score(context.Background(), p).Probability
	if rulesOnly != 0.5 {
		t.Fatalf("unexpected rule score: %v", rulesOnly)
	}

	blended := NewScorer(fixedModel{score: 0.9}, zerolog.Nop()).Score(context.Background(), p)
	if want := 0.7*0.9 + 0.3*0.5; math.Abs(blended.Probability-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, blended.Probability)
	}

	failed := NewScorer(fixedModel{err: errors.New("model down")}, zerolog.Nop()).Score(context.Background(), p)
	if failed.Probability != rulesOnly {
		t.Fatalf("model failure must fall back to rules, got %v", failed.Probability)
	}

	outOfRange := NewScorer(fixedModel{score: 7}, zerolog.Nop()).Score(context.Background(), p)
	if outOfRange.Probability != rulesOnly {
		t.Fatalf("out of range model output must be ignored, got %v", outOfRange.Probability)
	}
}

func TestScoreBounds(t *testing.T) {
	scorer := NewScorer(fixedModel{score: 1}, zerolog.Nop())
	postings := []models.JobPosting{
		{},
		cleanPosting(),
		{SourceURL: "https://example.com/a", Title: "Stage", Salary: models.SalaryAmount(1000000), Description: "urgent paiement rapidement"},
	}
	for _, p := range postings {
		got := scorer.Score(context.Background(), p).Probability
		if got < 0 || got > 1 {
			t.Fatalf("probability out of bounds: %v", got)
		}
	}
}

func TestApplyStoresResult(t *testing.T) {
	p := cleanPosting()
	p.CompanyName = ""
	NewScorer(nil, zerolog.Nop()).Apply(context.Background(), &p)
	if p.FraudProbability != 0.8 || len(p.FraudIndicators) != 1 {
		t.Fatalf("unexpected stored result: %v %+v", p.FraudProbability, p.FraudIndicators)
	}
}

func TestRiskBands(t *testing.T) {
	cases := []struct {
		p     float64
		level RiskLevel
		class string
	}{
		{0, RiskVeryLow, "success"},
		{0.19, RiskVeryLow, "success"},
		{0.2, RiskLow, "info"},
		{0.4, RiskMedium, "warning"},
		{0.6, RiskHigh, "danger"},
		{0.8, RiskVeryHigh, "danger"},
		{1, RiskVeryHigh, "danger"},
	}
	for _, tc := range cases {
		level := Risk(tc.p)
		if level != tc.level || level.Class() != tc.class {
			t.Fatalf("Risk(%v) = %s/%s, want %s/%s", tc.p, level, level.Class(), tc.level, tc.class)
		}
	}
}

func TestHTTPModel(t *testing.T) {
	var got Features
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"probability": 0.25}`))
	}))
	defer server.Close()

	p := cleanPosting()
	p.Location = "Paris, Île-de-France, France"
	score, err := NewHTTPModel(server.URL, 0).PredictProbability(context.Background(), FeaturesOf(p))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if score != 0.25 {
		t.Fatalf("unexpected score: %v", score)
	}
	if got.City != "Paris" || got.State != "Île-de-France" || got.Country != "France" {
		t.Fatalf("unexpected location split: %+v", got)
	}
	if got.RequiredExperience != "3" || got.RequiredEducation != "bac+5" {
		t.Fatalf("unexpected requirement features: %+v", got)
	}
}

func TestHTTPModelErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		http.Error(w, "no model loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := NewHTTPModel(server.URL, 0).PredictProbability(context.Background(), Features{}); err == nil {
		t.Fatalf("expected an error for a 503")
	}
	if _, err := NewHTTPModel(server.URL+"/empty", 0).PredictProbability(context.Background(), Features{}); err == nil {
		t.Fatalf("expected an error for a missing probability")
	}
}
