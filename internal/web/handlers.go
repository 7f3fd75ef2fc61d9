package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"genai-studio/common"
	"genai-studio/internal/imagefile"
)

func (s *Server) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Health 健康检查
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Index 渲染当前会话状态
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	data := newPageData(LocaleFromContext(r.Context()), sess.Snapshot())

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		common.WithSession(sess.ID()).WithError(err).Error("Failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Generate 提交表单中的提示词，结果通过页面刷新获取
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	// 空提示词或请求进行中时整个提交被忽略，当前提示词不变
	if _, ok := sess.DispatchPrompt(r.Context(), r.PostFormValue("prompt")); !ok {
		common.WithSession(sess.ID()).Debug("Submission ignored")
	}
	redirectHome(w, r)
}

// UploadImage 流式读取 multipart 中的 image 字段
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "expected multipart form", http.StatusBadRequest)
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// 请求体超限按文件过大处理，其余按读取失败处理
			size := int64(-1)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				size = s.opts.MaxUploadBytes + 1
			}
			_ = sess.UploadImage(r.Context(), size, "", &errReader{err: err})
			break
		}
		if part.FormName() != "image" {
			_ = part.Close()
			continue
		}
		if part.FileName() == "" {
			// 未选择文件
			_ = part.Close()
			break
		}
		size := declaredSize(part.Header.Get("Content-Length"))
		_ = sess.UploadImage(r.Context(), size, part.Header.Get("Content-Type"), part)
		_ = part.Close()
		break
	}
	redirectHome(w, r)
}

func declaredSize(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

// RemoveImage 移除参考图片
func (s *Server) RemoveImage(w http.ResponseWriter, r *http.Request) {
	s.session(w, r).RemoveImage()
	redirectHome(w, r)
}

// EditAgain 恢复上次提交的提示词
func (s *Server) EditAgain(w http.ResponseWriter, r *http.Request) {
	s.session(w, r).EditAgain()
	redirectHome(w, r)
}

// Download 以附件形式返回当前结果
func (s *Server) Download(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	d, ok := sess.Download()
	if !ok {
		http.Error(w, "no image to download", http.StatusNotFound)
		return
	}

	var (
		data     []byte
		mimeType string
		err      error
	)
	if strings.HasPrefix(d.Image, "data:") {
		var encoded imagefile.EncodedImage
		if encoded, err = imagefile.ParseDataURL(d.Image); err == nil {
			mimeType = encoded.MediaType
			data, err = encoded.Bytes()
		}
	} else {
		data, mimeType, err = s.fetch(r.Context(), d.Image)
	}
	if err != nil {
		common.WithSession(sess.ID()).WithError(err).Error("Failed to load image for download")
		http.Error(w, "failed to load image", http.StatusBadGateway)
		return
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
