package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/jobmatch/internal/models"
)

// Model is an optional statistical scorer returning a fraud probability in [0,1].
type Model interface {
	PredictProbability(ctx context.Context, features Features) (float64, error)
}

// Features is the flat record a model is trained on.
type Features struct {
	Title              string `json:"title"`
	Location           string `json:"location"`
	City               string `json:"city"`
	State              string `json:"state"`
	Country            string `json:"country"`
	Description        string `json:"description"`
	Benefits           string `json:"benefits"`
	EmploymentType     string `json:"employment_type"`
	RequiredExperience string `json:"required_experience"`
	RequiredEducation  string `json:"required_education"`
	CombinedText       string `json:"combined_text"`
	DescriptionLength  int    `json:"description_length"`
	BenefitsLength     int    `json:"benefits_length"`
}

func FeaturesOf(p models.JobPosting) Features {
	f := Features{
		Title:             p.Title,
		Location:          p.Location,
		Description:       p.Description,
		Benefits:          p.Benefits,
		EmploymentType:    p.ContractType,
		RequiredEducation: string(p.EducationRequired),
		DescriptionLength: len(p.Description),
		BenefitsLength:    len(p.Benefits),
	}
	if p.ExperienceRequired != nil {
		f.RequiredExperience = strconv.Itoa(*p.ExperienceRequired)
	}
	parts := strings.SplitN(p.Location, ",", 3)
	fields := []*string{&f.City, &f.State, &f.Country}
	for i, field := range fields {
		*field = "Unknown"
		if i < len(parts) && strings.TrimSpace(parts[i]) != "" {
			*field = strings.TrimSpace(parts[i])
		}
	}
	f.CombinedText = strings.Join([]string{p.Title, p.Location, p.Description, p.Benefits}, " ")
	return f
}

// HTTPModel posts Features as JSON to a prediction endpoint that answers
// {"probability": 0.42}.
type HTTPModel struct {
	url    string
	client *http.Client
}

func NewHTTPModel(endpoint string, timeout time.Duration) *HTTPModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPModel{url: endpoint, client: &http.Client{Timeout: timeout}}
}

func (m *HTTPModel) PredictProbability(ctx context.Context, features Features) (float64, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("model http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out struct {
		Probability *float64 `json:"probability"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode model response: %w", err)
	}
	if out.Probability == nil {
		return 0, fmt.Errorf("model response has no probability")
	}
	return *out.Probability, nil
}
