package analyses

import _ "embed"

var (
	//go:embed prompts/extractor.txt
	extractorPrompt string
	//go:embed prompts/interpreter.txt
	interpreterPrompt string
	//go:embed prompts/verifier.txt
	verifierPrompt string
)

// unknownPatientContext is substituted when no demographics are linked, so
// the model never silently assumes an age or gender.
const unknownPatientContext = "Patient demographics are unknown. Use general adult reference norms and say so where it matters."
