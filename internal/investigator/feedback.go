package investigator

// Fixed corrective messages fed back into the conversation in response
// to a classified decision (spec.md §4.5 step 5). These are constants,
// not templates, so repeated occurrences are byte-identical.
const (
	feedbackUseToolCallingAPI = "你刚才的回复是纯文本描述，没有通过工具调用接口发起调用。请使用提供的函数调用（function calling）接口重新发起这次操作。"

	feedbackContinueOrConclude = "请基于已有证据继续调用工具收集更多信息，或者在确信证据充分后给出最终结论。"

	feedbackSelfCheckRequired = "必须先完成自检才能结束调查：在给出 [INVESTIGATION_COMPLETE] 结论之前，请先调用 think 工具反思当前证据是否足够回答问题。"

	feedbackHallucinationDetected = "检测到文本中包含虚构的工具执行结果。请勿在回复中编造工具输出；如需调用工具，请使用函数调用接口。"

	feedbackStuckLoop = "检测到循环：你已经连续多次使用相同参数调用同一个工具，没有取得新进展。请尝试不同的参数或工具，或者基于已收集的证据直接给出结论。"
)

// toolCallFeedback formats the user-message content that follows a
// successful or failed tool execution (spec.md §4.5 step 5).
func toolCallFeedback(toolName string, success bool, output string) string {
	status := "成功"
	if !success {
		status = "失败"
	}
	return "工具 \"" + toolName + "\" 执行" + status + ":\n\n" + output
}

// toolCallFallback is what the assistant message becomes when the
// model's own text was entirely hallucination (scrubHallucinations left
// nothing behind) alongside a real structured tool call.
func toolCallFallback(toolName string) string {
	return "调用 " + toolName + " 工具"
}
