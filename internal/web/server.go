package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"genai-studio/internal/i18n"
	"genai-studio/internal/imagefile"
	"genai-studio/internal/studio"
	"genai-studio/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionCookieName = "studio_session"
	// 加载中页面的自动刷新间隔
	refreshSeconds = 2
	// multipart 表单除图片外的额外开销
	multipartOverhead = 64 << 10
)

// Options Web 层配置
type Options struct {
	DefaultLocale  language.Tag
	CookieSecure   bool
	MaxUploadBytes int64
}

// Server 渲染会话状态并把表单操作转发给 Session
type Server struct {
	registry *studio.Registry
	opts     Options
	page     *template.Template
	// fetch 下载归档到 OSS 的结果，测试时替换
	fetch func(ctx context.Context, url string) ([]byte, string, error)
}

// NewServer 创建 Web 服务
func NewServer(registry *studio.Registry, opts Options) (*Server, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = imagefile.MaxUploadBytes
	}
	if opts.DefaultLocale == language.Und {
		opts.DefaultLocale = language.English
	}
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	return &Server{
		registry: registry,
		opts:     opts,
		page:     page,
		fetch:    utils.DownloadImageFromURL,
	}, nil
}

// Routes 返回 HTTP 路由
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, AccessLogger, SecurityHeaders)

	r.Get("/healthz", s.Health)

	r.Group(func(r chi.Router) {
		r.Use(Locale(s.opts.DefaultLocale))
		r.Get("/", s.Index)
		r.Post("/generate", s.Generate)
		r.Post("/image", s.UploadImage)
		r.Post("/image/remove", s.RemoveImage)
		r.Post("/edit-again", s.EditAgain)
		r.Get("/download", s.Download)
	})

	return r
}

// session 返回 Cookie 对应的会话，不存在时创建新会话
func (s *Server) session(w http.ResponseWriter, r *http.Request) *studio.Session {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if sess, ok := s.registry.Get(c.Value); ok {
			return sess
		}
	}

	sess := s.registry.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// pageData 页面渲染数据
type pageData struct {
	Lang           string
	View           studio.View
	Loading        bool
	RefreshSeconds int
	PreviewURL     template.URL
	ResultURL      template.URL
	ErrorMessage   string

	tag language.Tag
}

// T 翻译界面文本
func (p pageData) T(key string) string {
	return i18n.Translate(p.tag, key)
}

func newPageData(tag language.Tag, view studio.View) pageData {
	data := pageData{
		Lang:           tag.String(),
		View:           view,
		Loading:        view.Loading(),
		RefreshSeconds: refreshSeconds,
		ErrorMessage:   view.ErrorMessage.Localize(tag),
		tag:            tag,
	}
	if view.Uploaded != nil {
		data.PreviewURL = safeImageURL(view.Uploaded.PreviewURL)
	}
	if view.State.HasResult() {
		data.ResultURL = safeImageURL(view.State.Result.Image)
	}
	return data
}

// safeImageURL 只放行图片 data URL 和 http(s) URL，其余返回空
func safeImageURL(ref string) template.URL {
	switch {
	case strings.HasPrefix(ref, "data:image/"),
		strings.HasPrefix(ref, "https://"),
		strings.HasPrefix(ref, "http://"):
		return template.URL(ref)
	default:
		return ""
	}
}
