package domain

const (
	DefaultLanguage = "javascript"
	DefaultTheme    = "vs-dark"
)

// Languages the editor widget understands.
var Languages = []string{
	"javascript", "python", "java", "typescript", "c#", "cpp", "c", "sql",
	"go", "php", "rust", "kotlin", "html", "css", "bash", "shell", "swift",
	"ruby", "dart", "markdown", "json",
}

// Themes the editor widget understands.
var Themes = []string{"vs-dark", "light", "vs", "hc-black"}

func NormalizeLanguage(lang string) string {
	for _, l := range Languages {
		if l == lang {
			return lang
		}
	}
	return DefaultLanguage
}

func NormalizeTheme(theme string) string {
	for _, t := range Themes {
		if t == theme {
			return theme
		}
	}
	return DefaultTheme
}
