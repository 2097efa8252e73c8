// Package server 是本地 Web 前端：表单提交查询，结果以逐行 JSON 返回。
//
// 行为与旧版桌面 GUI 一致：每次提交查询先写回配置，再后台扫描，最后一次性渲染结果。
package server

import (
	_ "embed"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/findid/internal/app/search"
	"github.com/John-Robertt/findid/internal/config"
	"github.com/John-Robertt/findid/internal/domain"
	"github.com/John-Robertt/findid/internal/match"
	"github.com/John-Robertt/findid/internal/render"
)

//go:embed index.html
var indexHTML []byte

// Handler 持有配置文件路径与策略表；配置写入由 mu 串行化（单写者）。
type Handler struct {
	ConfigFile string
	Registry   match.Registry
	Log        logrus.FieldLogger

	mu sync.Mutex
}

func NewHandler(configFile string, reg match.Registry, log logrus.FieldLogger) *Handler {
	return &Handler{ConfigFile: configFile, Registry: reg, Log: log}
}

// Engine 组装 gin 路由。
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog())

	r.GET("/", h.index)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/config", h.getConfig)   // GET /api/config
	rg.POST("/search", h.postSearch) // POST /api/search
}

type searchBody struct {
	Query        string `json:"query"`
	Path         string `json:"path"`
	CheckGUID    bool   `json:"check_guid"`
	CheckShortID bool   `json:"check_short_id"`
	CheckMediaID bool   `json:"check_media_id"`
}

func (b searchBody) modes() domain.Modes {
	return domain.Modes{GUID: b.CheckGUID, ShortID: b.CheckShortID, MediaID: b.CheckMediaID}
}

func (h *Handler) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (h *Handler) getConfig(c *gin.Context) {
	cfg, err := config.LoadOrDefault(h.ConfigFile)
	if err != nil && config.Code(err) != config.ErrCodeNotFound {
		h.Log.WithError(err).Warn("读取配置失败，使用默认配置")
	}
	c.JSON(http.StatusOK, cfg)
}

// postSearch 处理一次查询。
//
// 响应：
// - 默认 application/x-ndjson，每条结果一行（与旧 GUI 表格的数据源格式一致），头部带 X-Match-Count
// - ?format=report 时返回完整 SearchReport JSON
func (h *Handler) postSearch(c *gin.Context) {
	var body searchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体不是合法 JSON：" + err.Error()})
		return
	}

	cfg := h.saveConfig(body)

	if !body.modes().Any() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "至少需要开启一种匹配方式（guid/shortid/mediaid）"})
		return
	}
	if strings.TrimSpace(body.Path) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path 不能为空"})
		return
	}
	abs, err := filepath.Abs(body.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	root, _, err := config.ResolveRoot(abs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rr := search.Execute(c.Request.Context(), search.Request{
		Query:   body.Query,
		Root:    root,
		Modes:   body.modes(),
		Workers: cfg.Workers,
		Exclude: cfg.Exclude,
	}, h.Registry, h.Log)

	c.Header("X-Run-ID", rr.RunID)
	c.Header("X-Match-Count", strconv.Itoa(len(rr.Matches)))
	c.Header("X-Failed-Files", strconv.Itoa(rr.Summary.Failed))

	if c.Query("format") == "report" {
		c.JSON(http.StatusOK, rr)
		return
	}
	c.Header("Content-Type", "application/x-ndjson; charset=utf-8")
	c.Status(http.StatusOK)
	if err := render.JSONLines(c.Writer, rr.Matches); err != nil {
		h.Log.WithError(err).Warn("写出响应失败")
	}
}

// saveConfig 把本次提交写回配置（与 GUI 一样在查询前保存），返回写回后的配置。
// 写入失败只记日志，不阻止查询。
func (h *Handler) saveConfig(body searchBody) config.Config {
	h.mu.Lock()
	defer h.mu.Unlock()

	cfg, err := config.LoadOrDefault(h.ConfigFile)
	if err != nil && config.Code(err) != config.ErrCodeNotFound {
		h.Log.WithError(err).Warn("读取配置失败，使用默认配置")
	}
	cfg.Path = body.Path
	if strings.TrimSpace(body.Path) != "" {
		if abs, err := filepath.Abs(body.Path); err == nil {
			cfg.Path = abs
		}
	}
	cfg.SetModes(body.modes())
	if err := config.Save(h.ConfigFile, cfg); err != nil {
		h.Log.WithError(err).WithField("file", h.ConfigFile).Warn("保存配置失败")
	}
	return cfg
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		e := h.Log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})
		if len(c.Errors) > 0 {
			e.WithError(errors.New(c.Errors.String())).Warn("request")
			return
		}
		e.Debug("request")
	}
}
