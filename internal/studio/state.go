package studio

import "genai-studio/internal/i18n"

// Phase 请求处理阶段
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GenerationResult 一次成功请求的结果
type GenerationResult struct {
	// Image 可直接展示的图片引用（data URL 或 OSS URL）
	Image string
	// Prompt 提交时的提示词
	Prompt string
}

// RequestState 显式状态：Result 仅在 Succeeded 时有值，Message 仅在 Failed 时有值
type RequestState struct {
	Phase   Phase
	Result  GenerationResult
	Message i18n.Message
}

func idleState() RequestState {
	return RequestState{Phase: PhaseIdle}
}

func loadingState() RequestState {
	return RequestState{Phase: PhaseLoading}
}

func succeededState(result GenerationResult) RequestState {
	return RequestState{Phase: PhaseSucceeded, Result: result}
}

func failedState(msg i18n.Message) RequestState {
	return RequestState{Phase: PhaseFailed, Message: msg}
}

// HasResult 是否持有生成结果
func (s RequestState) HasResult() bool {
	return s.Phase == PhaseSucceeded
}
