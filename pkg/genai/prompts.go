package genai

import (
	"encoding/json"
	"fmt"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// Usage kinds recorded in the admin log.
const (
	KindTimeline = "Generate Timeline (Text)"
	KindImage    = "Generate Image"
	KindDebate   = "Generate Debate"
	KindQuestion = "Ask Question (Event)"
	KindChat     = "Chat"
)

var timelineSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "events": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "year": {"type": "string"},
          "title": {"type": "string"},
          "description": {"type": "string"}
        },
        "required": ["year", "title", "description"]
      }
    }
  },
  "required": ["title", "description", "events"]
}`)

var debateSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "topic": {"type": "string"},
    "perspectives": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "role": {"type": "string"},
          "summary": {"type": "string"},
          "argument": {"type": "string"}
        },
        "required": ["name", "role", "summary", "argument"]
      }
    },
    "exchanges": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "speaker": {"type": "string"},
          "text": {"type": "string"}
        },
        "required": ["speaker", "text"]
      }
    },
    "questions": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["topic", "perspectives", "exchanges", "questions"]
}`)

func timelineSystemPrompt(c model.Category) string {
	if c == model.CategoryAlternate {
		return "You are an expert alternate history author. You create plausible, fascinating timelines based on historical divergences."
	}
	return "You are a rigorous historian. Create an accurate, factual timeline based on the user's topic. Focus on key milestone events."
}

func timelineUserPrompt(prompt string, c model.Category) string {
	if c == model.CategoryAlternate {
		return fmt.Sprintf("Create a detailed historical timeline based on this \"What If\" premise: %q. Include 5 to 6 distinct events. Respond with JSON only.", prompt)
	}
	return fmt.Sprintf("Create a detailed historical timeline about this topic: %q. Include 5 to 6 distinct key events. Respond with JSON only.", prompt)
}

const debateSystemPrompt = "You are a historical dramatist. You recreate voices from the past to debate pivotal moments with nuance and accuracy."

func debateUserPrompt(title, description string) string {
	return fmt.Sprintf(`Generate a historical debate about this event: %q.
Context: %s.
1. Create 2-3 distinct perspectives (e.g., specific historical figures or representative roles).
2. Create a script of their debate (4-6 exchanges).
3. Suggest 3 thought-provoking follow-up questions.
Respond with JSON only.`, title, description)
}

func questionPrompt(title, description, question string) string {
	return fmt.Sprintf(`Context Event: %s
Event Description: %s

User Question: %s

Answer the user's question directly and concisely based on the event context provided above.`, title, description, question)
}

func chatSystemPrompt(context string) string {
	if context == "" {
		context = "General History"
	}
	return fmt.Sprintf(`You are a knowledgeable historical assistant for the app "Curious Dates".
Use the provided context to answer user questions accurately.
Context: %s.
Be concise, engaging, and educational.`, context)
}

func imagePrompt(description string, alternate bool) string {
	if alternate {
		return "Cinematic digital art, historical style, showing an alternate history scene: " + description
	}
	return "Historical illustration, realistic oil painting style, showing: " + description
}
