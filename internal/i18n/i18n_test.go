package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslatorRendersArgs(t *testing.T) {
	tr := New()
	assert.Equal(t, "С возвращением, Иван! 👋", tr.T("ru", "start.welcome_back", "Иван"))
	assert.Equal(t, "Xush kelibsiz, Иван! 👋", tr.T("uz", "start.welcome_back", "Иван"))
}

func TestTranslatorFallsBackToRussian(t *testing.T) {
	tr := New()

	// tg has no rent catalog yet; the Russian text must show instead.
	assert.Equal(t, tr.T("ru", "rent.no_bikes"), tr.T("tg", "rent.no_bikes"))

	// Unknown languages behave like Russian.
	assert.Equal(t, tr.T("ru", "registration.welcome"), tr.T("en", "registration.welcome"))
}

func TestTranslatorUnknownKeyStaysVisible(t *testing.T) {
	tr := New()
	assert.Equal(t, "no.such.key", tr.T("ru", "no.such.key"))
}

func TestMenuLabelsDifferPerLanguage(t *testing.T) {
	tr := New()

	seen := map[string]struct{}{}
	for _, lang := range []string{"ru", "tg", "uz"} {
		label := tr.T(lang, "menu.rent")
		assert.NotEqual(t, "menu.rent", label)
		seen[label] = struct{}{}
	}
	assert.Len(t, seen, 3)
}
