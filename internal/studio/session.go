package studio

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"genai-studio/common"
	"genai-studio/internal/i18n"
	"genai-studio/internal/imagefile"
	"genai-studio/internal/utils"
)

// Generator 文生图客户端
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Editor 图片编辑客户端
type Editor interface {
	EditImage(ctx context.Context, prompt string, image imagefile.EncodedImage) (string, error)
}

// Session 单个用户的请求编排器，持有全部可变状态
type Session struct {
	id        string
	generator Generator
	editor    Editor
	encoder   *imagefile.Encoder

	mu         sync.Mutex
	prompt     string
	lastPrompt string
	uploaded   *imagefile.UploadedImage
	// notice 上传失败提示，与 Failed 的消息分开保存
	notice i18n.Message
	state  RequestState
}

// NewSession 创建会话
func NewSession(id string, generator Generator, editor Editor, encoder *imagefile.Encoder) *Session {
	if encoder == nil {
		encoder = imagefile.NewEncoder(imagefile.MaxUploadBytes)
	}
	return &Session{
		id:        id,
		generator: generator,
		editor:    editor,
		encoder:   encoder,
		state:     idleState(),
	}
}

// ID 会话 ID
func (s *Session) ID() string {
	return s.id
}

// SetPrompt 更新当前提示词
func (s *Session) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
}

// Dispatch 发起一次生成或编辑请求。提示词为空或已有请求进行中时不做任何事并返回 false；
// 否则返回的 channel 在状态落定后关闭。
func (s *Session) Dispatch(ctx context.Context) (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ctx, s.prompt)
}

// DispatchPrompt 以 prompt 提交请求。与 Dispatch 的判断相同，被忽略时提示词也保持不变。
func (s *Session) DispatchPrompt(ctx context.Context, prompt string) (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ctx, prompt)
}

// dispatchLocked 调用方需持有 s.mu
func (s *Session) dispatchLocked(ctx context.Context, prompt string) (<-chan struct{}, bool) {
	if strings.TrimSpace(prompt) == "" || s.state.Phase == PhaseLoading {
		return nil, false
	}

	s.prompt = prompt
	s.notice = i18n.Message{}
	s.lastPrompt = prompt
	s.state = loadingState()

	var source *imagefile.EncodedImage
	if s.uploaded != nil {
		encoded := s.uploaded.EncodedImage
		source = &encoded
	}

	done := make(chan struct{})
	// 请求结束不取消外部调用
	go s.run(context.WithoutCancel(ctx), prompt, source, done)
	return done, true
}

// Submit 发起请求并等待结果
func (s *Session) Submit(ctx context.Context) bool {
	done, ok := s.Dispatch(ctx)
	if !ok {
		return false
	}
	<-done
	return true
}

func (s *Session) run(ctx context.Context, prompt string, source *imagefile.EncodedImage, done chan<- struct{}) {
	defer close(done)

	var (
		ref  string
		err  error
		mode string
	)
	if source != nil {
		mode = "edit"
		ref, err = s.editor.EditImage(ctx, prompt, *source)
	} else {
		mode = "generate"
		ref, err = s.generator.GenerateImage(ctx, prompt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := common.WithSession(s.id).WithFields(map[string]interface{}{
		"mode":   mode,
		"prompt": utils.TruncateForLog(prompt, 100),
	})
	if err != nil {
		logger.WithError(err).Error("Image request failed")
		s.state = failedState(i18n.Msg(i18n.KeyProcessingFailed))
		return
	}
	logger.Info("Image request succeeded")
	s.state = succeededState(GenerationResult{Image: ref, Prompt: prompt})
}

// UploadImage 编码并保存参考图片。失败时设置提示信息，已保存的图片保持不变。
func (s *Session) UploadImage(ctx context.Context, size int64, declaredType string, r io.Reader) error {
	uploaded, err := s.encoder.Encode(ctx, size, declaredType, r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		common.WithSession(s.id).WithError(err).Warn("Image upload rejected")
		s.notice = s.uploadNotice(err)
		return err
	}

	s.uploaded = uploaded
	s.notice = i18n.Message{}
	if s.state.Phase == PhaseFailed {
		s.state = idleState()
	}
	common.WithSession(s.id).WithFields(map[string]interface{}{
		"mime_type": uploaded.MediaType,
		"size":      uploaded.Size,
	}).Debug("Image uploaded")
	return nil
}

func (s *Session) uploadNotice(err error) i18n.Message {
	switch {
	case errors.Is(err, imagefile.ErrFileTooLarge):
		return fileTooLargeNotice(s.encoder.MaxBytes)
	case errors.Is(err, imagefile.ErrUnsupportedType):
		return i18n.Msg(i18n.KeyUnsupportedType)
	default:
		return i18n.Msg(i18n.KeyFileReadFailed)
	}
}

// fileTooLargeNotice 上限按 MB 向上取整显示，不足 1MB 时按 KB 显示
func fileTooLargeNotice(maxBytes int64) i18n.Message {
	const kib, mib = 1 << 10, 1 << 20
	if maxBytes >= mib {
		return i18n.Msg(i18n.KeyFileTooLarge, (maxBytes+mib-1)/mib)
	}
	return i18n.Msg(i18n.KeyFileTooLargeKB, (maxBytes+kib-1)/kib)
}

// RemoveImage 移除参考图片
func (s *Session) RemoveImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = nil
}

// EditAgain 将提示词恢复为上次提交的内容，状态保持不变
func (s *Session) EditAgain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = s.lastPrompt
}

// Download 导出的图片和文件名
type Download struct {
	Filename string
	Image    string
}

// Download 返回当前结果的下载信息，没有结果时返回 false
func (s *Session) Download() (Download, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasResult() {
		return Download{}, false
	}
	return Download{
		Filename: DownloadName(s.state.Result.Prompt),
		Image:    s.state.Result.Image,
	}, true
}

// View 用于渲染的状态快照
type View struct {
	ID         string
	Prompt     string
	LastPrompt string
	Uploaded   *imagefile.UploadedImage
	State      RequestState
	// ErrorMessage 上传提示优先，否则为 Failed 的消息
	ErrorMessage i18n.Message
}

// Loading 是否有请求进行中
func (v View) Loading() bool {
	return v.State.Phase == PhaseLoading
}

// Snapshot 返回当前状态的副本
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:           s.id,
		Prompt:       s.prompt,
		LastPrompt:   s.lastPrompt,
		State:        s.state,
		ErrorMessage: s.notice,
	}
	if v.ErrorMessage.IsZero() && s.state.Phase == PhaseFailed {
		v.ErrorMessage = s.state.Message
	}
	if s.uploaded != nil {
		uploaded := *s.uploaded
		v.Uploaded = &uploaded
	}
	return v
}

// Phase 当前阶段
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase
}
