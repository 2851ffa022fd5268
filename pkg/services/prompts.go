package services

import (
	"strings"

	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/vectorstore"
)

// Persona system messages. Each persona answers the same question with
// a different register; all of them are told to fence SQL so the
// extractor can find it.
var personaSystemMessages = map[models.AgentType]string{
	models.AgentDefault: "You are a data analyst assistant. Answer the question " +
		"concisely and include the SQL query you would run inside a ```sql fenced block.",
	models.AgentExplain: "You are a data analyst assistant. Answer the question, " +
		"include the SQL inside a ```sql fenced block, and explain step by step what " +
		"each clause of the query does.",
	models.AgentCreate: "You are a SQL author. Produce only the SQL query that " +
		"answers the question, inside a ```sql fenced block, with no further commentary.",
	models.AgentDetailed: "You are a senior data analyst. Answer the question " +
		"thoroughly: include the SQL inside a ```sql fenced block, note any assumptions " +
		"about the schema, and mention caveats about the result.",
}

// systemMessageFor returns the persona system message, falling back to
// the default persona for unknown values.
func systemMessageFor(agent models.AgentType) string {
	if msg, ok := personaSystemMessages[agent]; ok {
		return msg
	}
	return personaSystemMessages[models.AgentDefault]
}

// buildPrompt composes the user prompt from the available context
// blocks. Empty blocks are omitted entirely.
func buildPrompt(question, schemaDescription, conversationSummary string, retrieved []vectorstore.Candidate) string {
	var b strings.Builder

	if schemaDescription != "" {
		b.WriteString("Relevant schema:\n")
		b.WriteString(schemaDescription)
		b.WriteString("\n\n")
	}

	if conversationSummary != "" {
		b.WriteString("Earlier in this conversation:\n")
		b.WriteString(conversationSummary)
		b.WriteString("\n\n")
	}

	if len(retrieved) > 0 {
		b.WriteString("Similar past queries:\n")
		for _, c := range retrieved {
			b.WriteString("- ")
			b.WriteString(c.Content)
			if c.Metadata.Description != "" {
				b.WriteString(" (")
				b.WriteString(c.Metadata.Description)
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)

	return b.String()
}
