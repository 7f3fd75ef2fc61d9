package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 面向用户的提示信息，以英文原文作为 catalog 的 key
const (
	KeyFileTooLarge     = "The image file is too large. The maximum size is %dMB."
	KeyFileTooLargeKB   = "The image file is too large. The maximum size is %dKB."
	KeyFileReadFailed   = "Failed to read the image file."
	KeyUnsupportedType  = "Unsupported image format. Use PNG, JPEG or WEBP."
	KeyProcessingFailed = "Failed to process the image. Check your API key and prompt, then try again."
)

// ptBR 巴西葡萄牙语翻译
var ptBR = map[string]string{
	KeyFileTooLarge:     "O arquivo de imagem é muito grande. O tamanho máximo é de %dMB.",
	KeyFileTooLargeKB:   "O arquivo de imagem é muito grande. O tamanho máximo é de %dKB.",
	KeyFileReadFailed:   "Falha ao ler o arquivo de imagem.",
	KeyUnsupportedType:  "Formato de imagem não suportado. Use PNG, JPEG ou WEBP.",
	KeyProcessingFailed: "Falha ao processar a imagem. Verifique sua chave de API, o prompt e tente novamente.",

	"AI Image Generator":                         "Gerador de Imagem IA",
	"Turn text into visual art with Gemini":      "Transforme texto em arte visual com Gemini",
	"Describe your vision":                       "Descreva sua Visão",
	"Customize your image":                       "Personalize sua Imagem",
	"Be as detailed as possible for the best results. Think about style, color and composition.": "Seja o mais detalhado possível para obter os melhores resultados. Pense em estilo, cor e composição.",
	"Describe the edits you want to make. You can add, remove or change elements in the image.":  "Descreva as edições que você quer fazer. Você pode adicionar, remover ou alterar elementos na imagem.",
	"Upload image (optional)":                    "Carregar Imagem (Opcional)",
	"Upload":                                     "Enviar",
	"Image uploaded.":                            "Imagem carregada.",
	"Remove image":                               "Remover imagem",
	"Ex: An astronaut riding a horse on Mars...": "Ex: Um astronauta andando a cavalo em marte...",
	"Ex: Add a pirate hat to the dog...":         "Ex: Adicione um chapéu de pirata no cachorro...",
	"Generate image":                             "Gerar Imagem",
	"Customize image":                            "Personalizar Imagem",
	"Processing...":                              "Processando...",
	"Your image will appear here":                "Sua imagem aparecerá aqui",
	"Describe an image, click \"Generate\" and watch the magic happen.": "Descreva uma imagem, clique em \"Gerar\" e veja a mágica acontecer.",
	"Creating your masterpiece...":                  "Criando sua obra-prima...",
	"Customize":                                     "Personalizar",
	"Download":                                      "Download",
	"Built with Go, html/template and the Gemini API.": "Desenvolvido com Go, html/template e Gemini API.",
}

var (
	// Supported 支持的语言，第一个为兜底语言
	Supported = []language.Tag{language.English, language.BrazilianPortuguese}

	matcher = language.NewMatcher(Supported)
)

func init() {
	for key, translation := range ptBR {
		if err := message.SetString(language.BrazilianPortuguese, key, translation); err != nil {
			panic(fmt.Sprintf("i18n: register %q: %v", key, err))
		}
	}
}

// Message 延迟本地化的提示信息
type Message struct {
	Key  string
	Args []interface{}
}

// Msg 创建提示信息
func Msg(key string, args ...interface{}) Message {
	return Message{Key: key, Args: args}
}

// IsZero 是否为空信息
func (m Message) IsZero() bool {
	return m.Key == ""
}

// String 返回英文文本
func (m Message) String() string {
	return m.Localize(language.English)
}

// Localize 按指定语言渲染
func (m Message) Localize(tag language.Tag) string {
	if m.IsZero() {
		return ""
	}
	return message.NewPrinter(tag).Sprintf(m.Key, m.Args...)
}

// Translate 翻译界面文本
func Translate(tag language.Tag, key string) string {
	return message.NewPrinter(tag).Sprintf(key)
}

// Negotiate 依次尝试每个偏好（X-Locale、Accept-Language），都不匹配时返回 fallback
func Negotiate(fallback language.Tag, prefs ...string) language.Tag {
	for _, pref := range prefs {
		if pref == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil || len(tags) == 0 {
			continue
		}
		if _, index, confidence := matcher.Match(tags...); confidence != language.No {
			return Supported[index]
		}
	}
	return fallback
}

// ParseLocale 解析配置中的默认语言，无法识别时返回英文
func ParseLocale(locale string) language.Tag {
	return Negotiate(language.English, locale)
}
