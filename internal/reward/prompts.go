package reward

import "strings"

// Placeholder tokens substituted into the arbitration prompts. The double
// underscore framing keeps them from colliding with memo content.
const (
	proposedCapPlaceholder = "___PROPOSED_REWARD___"
	proposalPlaceholder    = "___TASK_PROPOSAL___"
	promptPlaceholder      = "___VERIFICATION_QUESTION___"
	responsePlaceholder    = "___TASK_VERIFICATION___"
	historyPlaceholder     = "___REWARD_HISTORY___"
)

const rewardSystemPrompt = `You are the Post Fiat Reward Arbiter. A user was offered
___PROPOSED_REWARD___ PFT in exchange for completing a task that would maximize the
value of the Post Fiat Network and help the user reach their stated objectives.

You are provided with the task details, the verification question issued by the
system, and the user's proof of completion.

Guiding principles:
1. Never award more than the maximum amount proposed for the task.
2. Be critical and discerning but reasonable. Users who work for the network and
   get no rewards become disillusioned.
3. Be wary of sybil attacks and dishonesty. Do not give high rewards to
   perceived bad actors mining the network without providing value.
4. Opine first per the user prompt instructions, then output your final decision
   in exactly this format:
| Summary Judgment | <2 short sentences summarizing your reasoning about the reward value> |
| Total PFT Rewarded | <integer up to a value of ___PROPOSED_REWARD___> |
`

const rewardUserPrompt = `The user has indicated that they have completed the task.

< TASK STARTS HERE >
___TASK_PROPOSAL___
< TASK ENDS HERE >

The user was prompted with the following verification question.
< VERIFICATION QUESTION STARTS HERE >
___VERIFICATION_QUESTION___
< VERIFICATION QUESTION ENDS HERE >

The user responded to this question with the following response.
< TASK VERIFICATION STARTS HERE >
___TASK_VERIFICATION___
< TASK VERIFICATION ENDS HERE >

These are the historical rewards recently awarded to the user.
< REWARD DATA STARTS HERE >
___REWARD_HISTORY___
< REWARD DATA ENDS HERE >

Your instructions:
1. 1-2 sentences discussing whether the user completed the task and verified it
   appropriately.
2. 1-2 sentences discussing whether the verification response is coherent and
   likely verifiable, considering whether the presented evidence was relevant
   and answered the question.
3. Output your decision in the format required by the system prompt.
`

func renderRewardUserPrompt(rctx *Context) string {
	return strings.NewReplacer(
		proposalPlaceholder, rctx.ProposalText,
		promptPlaceholder, rctx.VerificationPrompt,
		responsePlaceholder, rctx.VerificationResponse,
		historyPlaceholder, rctx.RewardHistory,
	).Replace(rewardUserPrompt)
}
