package studio

import (
	"strings"
	"unicode"
)

const (
	defaultDownloadBase = "imagem-ia"
	maxDownloadBaseLen  = 50
)

// DownloadName 根据提示词生成下载文件名：小写，空白折叠为 "-"，最多 50 个字符
func DownloadName(prompt string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.ToLower(prompt) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte('-')
		}
		inSpace = false
		b.WriteRune(r)
	}

	base := []rune(b.String())
	if len(base) > maxDownloadBaseLen {
		base = base[:maxDownloadBaseLen]
	}
	name := string(base)
	if name == "" {
		name = defaultDownloadBase
	}
	return name + ".png"
}
