package engine

// intentSystemPrompt asks for a machine-readable clarity verdict. The reply
// must be an object so a chatty model can still be parsed.
const intentSystemPrompt = `You judge whether a customer support query is clear enough to act on.

A query is clear when, combined with the conversation so far, a support agent could start answering it. It is unclear when it is too vague, ambiguous, or missing the one detail needed to proceed.

Respond with JSON only:
{"clear": true, "reason": "..."}`

// rewriteSystemPrompt turns the customer's message into a standalone,
// retrieval-friendly query so search does not depend on conversation state.
const rewriteSystemPrompt = `Rewrite the customer's message as a self-contained support query, folding in whatever context from the conversation it implicitly refers to. If there is no prior conversation, normalize the phrasing for knowledge base search. Preserve the customer's intent exactly. Reply with the rewritten query only, no quotes and no explanation.`

// clarifySystemPrompt asks for exactly one clarifying question.
const clarifySystemPrompt = `The customer's message is too vague to act on. Ask exactly one short, friendly question that would give you the missing detail. Reply with the question only.`

// answerSystemPrompt generates the final reply grounded in retrieved context.
const answerSystemPrompt = `You are a customer support assistant. Answer the customer's question using the knowledge base excerpts provided. Stay strictly within the excerpts; if they do not cover the question, say so honestly and suggest contacting a human agent. Be concise and friendly.`

// noContextSystemPrompt handles queries the knowledge base cannot ground.
const noContextSystemPrompt = `You are a customer support assistant. The knowledge base has no information relevant to the customer's question. Tell the customer honestly that you cannot answer from the available documentation and offer to escalate to a human agent. Do not invent an answer.`

// fallbackClarification is returned when the clarification model call fails.
const fallbackClarification = "Could you tell me a bit more about what you need help with?"
