package studio

import (
	"fmt"
	"sync"
	"time"

	"genai-studio/common"
	"genai-studio/internal/imagefile"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// Registry 按会话 ID 管理 Session，每个浏览器一个
type Registry struct {
	generator Generator
	editor    Editor
	encoder   *imagefile.Encoder
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

// NewRegistry 创建会话注册表，所有会话共享同一组客户端
func NewRegistry(generator Generator, editor Editor, encoder *imagefile.Encoder) *Registry {
	return &Registry{
		generator: generator,
		editor:    editor,
		encoder:   encoder,
		now:       time.Now,
		sessions:  make(map[string]*registryEntry),
	}
}

// Create 创建新会话
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	session := NewSession(id, r.generator, r.editor, r.encoder)

	r.mu.Lock()
	r.sessions[id] = &registryEntry{session: session, lastSeen: r.now()}
	r.mu.Unlock()

	common.WithSession(id).Debug("Session created")
	return session
}

// Get 查找会话并刷新访问时间
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.session, true
}

// Len 当前会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep 清理空闲超过 maxIdle 的会话，请求进行中的会话保留。返回清理数量。
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.sessions {
		if entry.lastSeen.After(cutoff) || entry.session.Phase() == PhaseLoading {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed
}

// StartSweeper 按 cron 表达式定期清理空闲会话，调用方负责 Stop
func (r *Registry) StartSweeper(spec string, maxIdle time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if removed := r.Sweep(maxIdle); removed > 0 {
			common.WithFields(map[string]interface{}{
				"removed":   removed,
				"remaining": r.Len(),
			}).Info("Idle sessions swept")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule session sweep %q: %w", spec, err)
	}
	c.Start()
	common.WithFields(map[string]interface{}{
		"spec":     spec,
		"max_idle": maxIdle.String(),
	}).Info("Session sweeper started")
	return c, nil
}
