package ai

import "fmt"

func analyzePrompt(caller, partner, transcript string) string {
	return fmt.Sprintf(`You are an expert conversation analyst.
Analyze the following chat conversation between %s and %s.
Based on the conversation, provide a detailed analysis.
The current user is %s.

Here is the chat history:
--- CHAT START ---
%s
--- CHAT END ---

Please return your analysis as a single, valid JSON object with the following structure. Do not include any text or markdown formatting before or after the JSON object.
{
  "summary": {
    "conversationHeader": "A brief, one-sentence title for the conversation.",
    "mainDiscussion": "A 2-3 sentence summary of the main points discussed.",
    "overallTone": "Describe the overall tone (e.g., 'Friendly and casual', 'Formal and professional', 'Tense and argumentative')."
  },
  "sentiment": "Overall sentiment of the conversation (Positive, Negative, Neutral).",
  "topics": ["List of the 3-5 most important topics discussed."],
  "decisions": [
    {
      "decision": "A concise description of a decision made.",
      "madeBy": "The name of the person who made the decision or 'Both'."
    }
  ],
  "entities": {
    "locations": ["List any mentioned locations."],
    "dates": ["List any mentioned dates or days."],
    "organizations": ["List any mentioned organizations."]
  }
}`, caller, partner, caller, transcript)
}

func queryPrompt(caller, partner, transcript, query string) string {
	return fmt.Sprintf(`You are a helpful AI assistant. Your task is to answer a specific question based ONLY on the provided chat history between %s and %s.
Do not use any external knowledge or make assumptions. If the answer is not in the chat, state that clearly.

Here is the chat history:
--- CHAT START ---
%s
--- CHAT END ---

Now, please answer the following question: "%s"

Return your answer as a single, valid JSON object with the following structure. Do not include any text or markdown formatting before or after the JSON object.
{
  "question": "Repeat the exact question that was asked: %s",
  "answer": "Your concise answer here. If the information is not in the chat, say 'The answer could not be found in this conversation.'"
}`, caller, partner, transcript, query, query)
}

func followUpPrompt(caller, partner, transcript string) string {
	return fmt.Sprintf(`You are a creative conversation assistant. Your goal is to help a user continue a conversation with someone else.
The user, "%s", is talking to "%s".

Based on their recent chat history, suggest three engaging and relevant follow-up messages or questions that "%s" can send to continue the conversation.
If there is no chat history, suggest three interesting conversation starters.
The tone should be casual and friendly.

Chat History:
---
%s
---

Return your suggestions as a single, valid JSON object with a single key "suggestions" which is an array of three strings. Do not include any text or markdown formatting before or after the JSON object.`, caller, partner, caller, transcript)
}

func replyPrompt(caller, partner, lastMessage, transcript string) string {
	return fmt.Sprintf(`You are a helpful chat assistant. Your task is to help a user, "%s", reply to a message from "%s".
The last message from "%s" was: "%s"

Considering the recent chat history, generate three different reply options for "%s". The replies should be natural, concise, and appropriate for the context.

Recent Chat History:
---
%s
---

Return your suggestions as a single, valid JSON object with a single key "replies" which is an array of three strings. Do not include any text or markdown formatting before or after the JSON object.`, caller, partner, partner, lastMessage, caller, transcript)
}

func refinePrompt(draft, tone string) string {
	return fmt.Sprintf(`You are an expert writing assistant. A user wants to send a message but needs help phrasing it.
Their rough draft is: "%s"

Your task is to refine this draft and provide three alternative versions.
The tone should be %s. The message should be well-written, natural, and achieve the user's likely goal.

Return your suggestions as a single, valid JSON object with a single key "refined_messages" which is an array of three strings. Do not include any text or markdown formatting before or after the JSON object.`, draft, tone)
}
