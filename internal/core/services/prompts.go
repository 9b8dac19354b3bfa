package services

import (
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
)

// Fallback prompts, used when no prompt store is configured or a
// template cannot be loaded.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
const (
	defaultChunkSummaryPrompt = `Je vat een deel van een officiële publicatie samen.

Titel: %s
Datum: %s
Soort document: %s

Vat de onderstaande tekst samen in 3 tot 6 korte punten. Noem namen, bedragen en data letterlijk. Voeg niets toe dat niet in de tekst staat.

Tekst:
%s`

	defaultDocumentReducePrompt = `Hieronder staan samenvattingen van opeenvolgende delen van één officiële publicatie.

Titel: %s
Datum: %s
Soort document: %s

Schrijf één alinea van maximaal 10 zinnen die de totale inhoud samenvat. Behoud de belangrijkste feiten en besluiten.

Samenvattingen:
%s`

	defaultEntryReducePrompt = `De onderstaande samenvattingen horen bij documenten in dossier "%s" die zijn gepubliceerd op %s.

Combineer ze tot één alinea van maximaal 8 zinnen voor een tijdlijn. Benoem wat er op deze datum is gebeurd en welke documenten daarbij horen.

Samenvattingen:
%s`

	defaultTimelineDescriptionPrompt = `Je krijgt de samenvattingen van alle momenten in de tijdlijn van dossier "%s".

Schrijf een inleiding van maximaal 10 zinnen die de lezer uitlegt wat er in deze tijdlijn te lezen is en hoe het dossier zich heeft ontwikkeld.

Samenvattingen:
%s`
)

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}

// DefaultPrompts returns the built-in template for every prompt name.
// Prompt stores use it to seed editable copies.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptChunkSummary:        defaultChunkSummaryPrompt,
		driven.PromptDocumentReduce:      defaultDocumentReducePrompt,
		driven.PromptEntryReduce:         defaultEntryReducePrompt,
		driven.PromptTimelineDescription: defaultTimelineDescriptionPrompt,
	}
}
