package terms

// Built-in terminology and the static per-term tables the enricher reads.
// Keys are lowercase; lookups lowercase their input.

func defaultDefinitions() map[string]string {
	return map[string]string{
		"software architecture":  "The fundamental structures of a software system and the discipline of creating such structures and systems.",
		"design pattern":         "A general, reusable solution to a commonly occurring problem within a given context in software design.",
		"microservices":          "An architectural style that structures an application as a collection of loosely coupled services.",
		"api":                    "Application Programming Interface - a set of protocols and tools for building software applications.",
		"rest":                   "Representational State Transfer - an architectural style for designing networked applications.",
		"database":               "An organized collection of structured information, or data, typically stored electronically.",
		"algorithm":              "A process or set of rules to be followed in calculations or other problem-solving operations.",
		"data structure":         "A data organization, management, and storage format that enables efficient access and modification.",
		"object oriented":        "A programming paradigm based on the concept of objects, which contain data and code.",
		"functional programming": "A programming paradigm that treats computation as the evaluation of mathematical functions.",
	}
}

// Category membership is checked in order; the first group containing the term
// wins, so "api" and "rest" classify as architecture rather than web.
var categoryGroups = []struct {
	name  string
	terms []string
}{
	{"architecture", []string{"software architecture", "microservices", "design pattern", "api", "rest"}},
	{"programming", []string{"object oriented", "functional programming", "algorithm", "data structure"}},
	{"data", []string{"database", "data structure", "algorithm"}},
	{"web", []string{"api", "rest"}},
}

const (
	ComplexityBeginner     = "beginner"
	ComplexityIntermediate = "intermediate"
	ComplexityAdvanced     = "advanced"
)

var complexityTable = map[string]string{
	"api":                    ComplexityBeginner,
	"database":               ComplexityBeginner,
	"algorithm":              ComplexityBeginner,
	"object oriented":        ComplexityIntermediate,
	"design pattern":         ComplexityIntermediate,
	"rest":                   ComplexityIntermediate,
	"software architecture":  ComplexityAdvanced,
	"microservices":          ComplexityAdvanced,
	"functional programming": ComplexityAdvanced,
}

var prerequisiteTable = map[string][]string{
	"microservices":          {"software architecture", "api"},
	"design pattern":         {"object oriented"},
	"functional programming": {"algorithm"},
	"rest":                   {"api"},
	"data structure":         {"algorithm"},
}

var nextStepsTable = map[string][]string{
	"api":             {"rest", "microservices"},
	"object oriented": {"design pattern", "software architecture"},
	"algorithm":       {"data structure", "functional programming"},
	"database":        {"data structure", "software architecture"},
	"design pattern":  {"software architecture", "microservices"},
}

var exampleTable = map[string]string{
	"api":                    "Like a restaurant menu - it shows what's available and how to order, but you don't see the kitchen.",
	"microservices":          "Like a food delivery app: separate services for user accounts, restaurants, payments, and delivery tracking.",
	"object oriented":        "Like a car blueprint: Car class with properties (color, model) and methods (start, stop, accelerate).",
	"database":               "Like a digital filing cabinet with organized folders, labels, and quick search capabilities.",
	"algorithm":              "Like a recipe: step-by-step instructions to solve a problem or complete a task.",
	"design pattern":         "Like architectural blueprints: proven solutions for common building challenges.",
	"rest":                   "Like a standardized postal system: consistent rules for addressing, sending, and receiving messages.",
	"functional programming": "Like mathematical functions: given the same input, always produces the same output.",
	"software architecture":  "Like city planning: organizing components, infrastructure, and connections for scalability.",
	"data structure":         "Like organizing a library: different ways to arrange books for efficient finding and access.",
}

var misconceptionTable = map[string][]string{
	"api":             {"APIs are only for web development", "APIs are the same as databases"},
	"microservices":   {"Microservices are always better than monoliths", "More services = better architecture"},
	"object oriented": {"OOP is the only good programming paradigm", "More classes = better design"},
	"database":        {"All databases are the same", "Bigger databases are always slower"},
	"algorithm":       {"Algorithms are only for competitive programming", "Complex algorithms are always better"},
}

var usageContextTable = map[string]string{
	"api":             "Used in web development, mobile apps, cloud services, and system integration.",
	"microservices":   "Popular in large-scale applications like Netflix, Amazon, and Uber.",
	"object oriented": "Foundation of languages like Java, C#, Python, and modern software design.",
	"database":        "Essential for any application storing data: websites, mobile apps, enterprise systems.",
	"algorithm":       "Core of search engines, recommendation systems, and optimization problems.",
}
