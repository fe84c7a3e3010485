package extract

import (
	"regexp"

	"github.com/jimezsa/jobmatch/internal/models"
)

// Vocabulary is the controlled list of skills detected in free text.
var Vocabulary = []models.SkillTag{
	"Python", "Java", "JavaScript", "TypeScript", "C++", "C#", "PHP", "Ruby", "Swift", "Kotlin", "Go", "Rust",
	"React", "Angular", "Vue.js", "Django", "Flask", "Spring", "Laravel", "Node.js", "Express",
	"TensorFlow", "PyTorch", "Scikit-learn", "Pandas", "NumPy",
	"SQL", "MySQL", "PostgreSQL", "MongoDB", "Oracle", "SQLite", "Redis", "Elasticsearch",
	"Docker", "Kubernetes", "AWS", "Azure", "GCP", "Jenkins", "Git", "CI/CD",
	"Machine Learning", "Deep Learning", "NLP", "Computer Vision", "Data Mining",
	"Big Data", "Hadoop", "Spark", "Data Visualization", "Tableau", "Power BI",
	"Agile", "Scrum", "REST API", "GraphQL", "Microservices", "UX/UI", "Responsive Design",
}

var skillPatterns = compileSkillPatterns(Vocabulary)

// Symbols like "C++" defeat \b, so boundaries are any non-word rune or the text edge.
func compileSkillPatterns(vocabulary []models.SkillTag) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(vocabulary))
	for i, skill := range vocabulary {
		patterns[i] = regexp.MustCompile(`(?i)(?:^|[^\pL\pN_])` + regexp.QuoteMeta(string(skill)) + `(?:$|[^\pL\pN_+#])`)
	}
	return patterns
}

// Skills returns every vocabulary skill mentioned in text, using canonical spelling.
func Skills(text string) models.SkillSet {
	if text == "" {
		return nil
	}
	var found models.SkillSet
	for i, re := range skillPatterns {
		if re.MatchString(text) {
			found = found.Add(Vocabulary[i])
		}
	}
	return found
}
