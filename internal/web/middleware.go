package web

import (
	"context"
	"net/http"
	"time"

	"genai-studio/common"
	"genai-studio/internal/i18n"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"
)

type localeContextKey struct{}

// Locale 按 ?lang=、X-Locale、Accept-Language 的顺序协商语言
func Locale(fallback language.Tag) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := i18n.Negotiate(fallback,
				r.URL.Query().Get("lang"),
				r.Header.Get("X-Locale"),
				r.Header.Get("Accept-Language"),
			)
			ctx := context.WithValue(r.Context(), localeContextKey{}, tag)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext 返回协商出的语言，默认英文
func LocaleFromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(localeContextKey{}).(language.Tag); ok {
		return tag
	}
	return language.English
}

// AccessLogger 使用 logrus 记录每个请求
func AccessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := common.WithFields(map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     status,
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("HTTP request")
			return
		}
		entry.Debug("HTTP request")
	})
}

// SecurityHeaders 页面不需要脚本，图片允许 data: 和 https:
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data: https:; style-src 'unsafe-inline'; form-action 'self'; base-uri 'none'")
		next.ServeHTTP(w, r)
	})
}
