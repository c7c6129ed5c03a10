package chat

import (
	"fmt"
	"strings"
)

const synthesisInputBudget = 4000 // characters of document text per synthesis call

func answerPrompt(context, history, query, complexity string) string {
	var sb strings.Builder
	sb.WriteString("You are a senior financial analyst specializing in financial document analysis and Q&A.\n\n")
	sb.WriteString("Context from financial documents:\n")
	sb.WriteString(context)
	if history != "" {
		sb.WriteString(history)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Provide a concise and accurate answer based on the financial context provided\n")
	sb.WriteString("- If the context doesn't contain enough information, clearly state this limitation\n")
	sb.WriteString("- Cite specific information from the sources when possible\n")
	sb.WriteString("- Use proper financial terminology and maintain a professional tone\n")
	fmt.Fprintf(&sb, "\nResponse Length Guidelines (Query Complexity: %s):\n", complexity)
	sb.WriteString("- Keep responses to 1-2 paragraphs maximum\n")
	sb.WriteString("- Focus on key information and actionable insights only\n\nAnswer:")
	return sb.String()
}

func summaryPrompt(content, history string, maxWords int) string {
	var sb strings.Builder
	sb.WriteString("Create an executive summary of the following financial document:\n\n")
	sb.WriteString("Document content:\n")
	sb.WriteString(truncate(content, synthesisInputBudget))
	if history != "" {
		sb.WriteString(history)
	}
	fmt.Fprintf(&sb, "\n\nInstructions:\n- Create a comprehensive executive summary (max %d words)\n", maxWords)
	sb.WriteString("- Extract 5-7 key financial quotes with context\n")
	sb.WriteString("- Focus on financial performance, risks, opportunities, and strategic insights\n")
	sb.WriteString("- Highlight important metrics and trends\n\n")
	sb.WriteString("Format your response as:\nEXECUTIVE SUMMARY:\n[Your summary here]\n\n")
	sb.WriteString("KEY QUOTES:\n1. \"[Quote 1]\" - [Context]\n2. \"[Quote 2]\" - [Context]\n[Continue for 5-7 quotes]")
	return sb.String()
}

func quizPrompt(content, history string, numQuestions int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d multiple choice questions based on the following financial document:\n\n", numQuestions)
	sb.WriteString("Document content:\n")
	sb.WriteString(truncate(content, synthesisInputBudget))
	if history != "" {
		sb.WriteString(history)
	}
	sb.WriteString("\n\nInstructions:\n")
	fmt.Fprintf(&sb, "- Create %d high-quality MCQ questions\n", numQuestions)
	sb.WriteString("- Focus on financial concepts, metrics, and analysis\n")
	sb.WriteString("- Each question should have 4 options (A, B, C, D)\n")
	sb.WriteString("- Questions should test understanding, not memorization\n\n")
	sb.WriteString("Format your response as:\nQ1: [Question text]\nA. [Option A]\nB. [Option B]\nC. [Option C]\nD. [Option D]\nCorrect Answer: [Letter]\n\n[Continue for all questions]")
	return sb.String()
}

// historyContext renders the most recent turns for inclusion in a prompt,
// oldest first. Returns "" when there is no history.
func historyContext(history []Turn, turns int) string {
	if len(history) == 0 || turns <= 0 {
		return ""
	}
	if len(history) > turns {
		history = history[len(history)-turns:]
	}
	var sb strings.Builder
	sb.WriteString("\n\nPrevious conversation:\n")
	for _, turn := range history {
		role := "User"
		if turn.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, turn.Content)
	}
	return sb.String()
}
