package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"genai-studio/common"
	"genai-studio/internal/genai/gemini"
	"genai-studio/internal/i18n"
	"genai-studio/internal/imagefile"
	"genai-studio/internal/studio"
	"genai-studio/internal/tools"
	"genai-studio/internal/web"

	"github.com/mark3labs/mcp-go/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 加载配置
	config, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 打印配置信息（隐藏敏感信息）
	common.WithFields(map[string]interface{}{
		"mode":         config.AppMode,
		"base_url":     config.GenAIBaseURL,
		"gen_model":    config.GenAIGenModelName,
		"edit_model":   config.GenAIEditModelName,
		"image_format": config.GenAIImageFormat,
		"api_key":      maskAPIKey(config.GenAIAPIKey),
	}).Info("Server starting...")

	// 创建 Gemini 客户端
	geminiClient, err := gemini.NewGeminiClientFromConfig(config)
	if err != nil {
		common.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer geminiClient.Close()

	encoder := imagefile.NewEncoder(config.UploadMaxBytes)

	switch config.AppMode {
	case common.ModeMCP:
		err = serveMCP(geminiClient, encoder)
	default:
		err = serveWeb(config, geminiClient, encoder)
	}
	if err != nil {
		common.Fatalf("Server error: %v", err)
	}
}

// serveMCP 通过 stdio 提供 MCP tools
func serveMCP(client gemini.GeminiIface, encoder *imagefile.Encoder) error {
	s := server.NewMCPServer(
		"GenAI Studio MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if err := tools.RegisterStudioTools(s, client, encoder); err != nil {
		return err
	}

	return server.ServeStdio(s)
}

// serveWeb 启动 HTTP 页面服务，收到 SIGINT/SIGTERM 后优雅退出
func serveWeb(config *common.Config, client gemini.GeminiIface, encoder *imagefile.Encoder) error {
	registry := studio.NewRegistry(client, client, encoder)

	sweeper, err := registry.StartSweeper(config.SessionSweepSpec, config.SessionIdleTimeout)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	webServer, err := web.NewServer(registry, web.Options{
		DefaultLocale:  i18n.ParseLocale(config.DefaultLocale),
		CookieSecure:   config.CookieSecure,
		MaxUploadBytes: encoder.MaxBytes,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         config.GetServerAddr(),
		Handler:      webServer.Routes(),
		ReadTimeout:  config.HTTPReadTimeout,
		WriteTimeout: config.HTTPWriteTimeout,
		IdleTimeout:  config.HTTPIdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		common.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	common.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// maskAPIKey 隐藏 API Key 的敏感部分
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
