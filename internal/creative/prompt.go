package creative

// Prompts sent to the configured LLM. Every prompt demands JSON only so the
// response parser can work with structured and raw clients alike.
const (
	strategySystemPrompt = `You are a senior brand strategist. Derive distinct marketing strategies from the brief.

You must respond ONLY with a JSON object like:
{"strategies": [{"name": "short name", "core_message": "one sentence", "audience": "who", "angle": "how", "key_points": ["..."]}]}`

	styleGuideSystemPrompt = `You are an art director. Write a visual style guide for the given marketing strategy.

You must respond ONLY with a JSON object like:
{"strategy_name": "...", "palette": ["#hex"], "typography": "...", "mood": "...", "lighting": "...", "keywords": ["..."]}`

	conceptSystemPrompt = `You are a creative director. Propose one concrete visual scene for the strategy and style guide.

You must respond ONLY with a JSON object like:
{"strategy_name": "...", "title": "...", "description": "...", "subject": "...", "setting": "...", "composition": "..."}`

	assessmentSystemPrompt = `You are a critical reviewer. Score how well the image prompt serves the brief from 0 to 10.

You must respond ONLY with a JSON object like: {"score": 7.5, "notes": "short explanation"}`
)
