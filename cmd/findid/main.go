package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/John-Robertt/findid/internal/app/search"
	"github.com/John-Robertt/findid/internal/config"
	"github.com/John-Robertt/findid/internal/match"
	"github.com/John-Robertt/findid/internal/render"
	"github.com/John-Robertt/findid/internal/server"
)

const (
	exitRuntime = 1
	exitUsage   = 2
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		// ExitCoder 的消息已由 ExitErrHandler 写到 stderr。
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitRuntime)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "findid",
		Usage:     "在 Wwise 工程的 .wwu 文件中查找 GUID / ShortID / MediaID",
		ArgsUsage: "<id> [path]",
		Description: `path 可以是目录（其下必须直接包含 .wwu 文件）或 .wproj 工程文件；省略时使用配置文件中的 path。
   参数需放在 <id> 之前，例如：findid --mode mediaid 12345 D:\Game\Game.wproj`,
		Writer:    stdout,
		ErrWriter: stderr,
		// 只输出消息，不调用 os.Exit：退出码由 main 统一处理，便于测试直接调用 Run。
		ExitErrHandler: func(_ *cli.Context, err error) {
			var ec cli.ExitCoder
			if errors.As(err, &ec) && ec.Error() != "" {
				fmt.Fprintln(stderr, ec.Error())
			}
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.json 或 .toml）；写入时的锁文件放在系统临时目录",
				Value:   config.DefaultFile,
				EnvVars: []string{"FINDID_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "匹配方式：guid|shortid|mediaid（单选；未指定则使用配置文件中的开关）",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "每条结果输出一行 JSON（计数行改写到 stderr）",
			},
			&cli.BoolFlag{
				Name:  "report",
				Usage: "输出完整的查询报告 JSON（含每个文件的诊断）",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "并发扫描的文件数（默认 CPU 数）",
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "查询后不写回配置文件",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "输出调试日志",
			},
		},
		Action: searchAction,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "启动本地 Web 界面（替代桌面 GUI）",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "监听地址",
						Value: "127.0.0.1:7788",
					},
				},
				Action: serveAction,
			},
		},
	}
}

func searchAction(c *cli.Context) error {
	stdout, stderr := c.App.Writer, c.App.ErrWriter
	log := newLogger(stderr, c.Bool("verbose"))

	args := c.Args()
	if args.Len() < 1 || args.Len() > 2 {
		_ = cli.ShowAppHelp(c)
		return cli.Exit("参数错误：需要 <id> [path]", exitUsage)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return cli.Exit(fmt.Sprintf("读取当前目录失败：%v", err), exitRuntime)
	}

	eff, err := config.LoadEffective(cwd, c.String("config"), config.CLIArgs{
		Path:       args.Get(1),
		Mode:       c.String("mode"),
		ModeSet:    c.IsSet("mode"),
		Workers:    c.Int("workers"),
		WorkersSet: c.IsSet("workers"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("参数错误：%v", err), exitUsage)
	}
	if eff.LoadErr != nil {
		log.WithError(eff.LoadErr).Warn("读取配置失败，已回退默认配置")
	}

	jsonOut, reportOut := c.Bool("json"), c.Bool("report")

	var obs search.Observer
	if !jsonOut && !reportOut && isTTY(stderr) {
		obs = newProgressUI(stderr)
	}

	rr := search.ExecuteWithObserver(c.Context, search.Request{
		Query:   args.Get(0),
		Root:    eff.Root,
		Modes:   eff.Modes,
		Workers: eff.Workers,
		Exclude: eff.Exclude,
	}, match.Default(), log, obs)

	switch {
	case reportOut:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rr); err != nil {
			return cli.Exit(fmt.Sprintf("写出报告失败：%v", err), exitRuntime)
		}
	case jsonOut:
		// stdout 只放结果行，计数走 stderr。
		if err := render.JSONLines(stdout, rr.Matches); err != nil {
			return cli.Exit(fmt.Sprintf("写出结果失败：%v", err), exitRuntime)
		}
		_ = render.Count(stderr, len(rr.Matches))
	default:
		if err := render.Text(stdout, rr.Matches, eff.Modes); err != nil {
			return cli.Exit(fmt.Sprintf("写出结果失败：%v", err), exitRuntime)
		}
	}

	if !c.Bool("no-save") {
		if err := config.Save(eff.File, eff.Persisted()); err != nil {
			log.WithError(err).WithField("file", eff.File).Warn("保存配置失败")
		}
	}
	return nil
}

func serveAction(c *cli.Context) error {
	log := newLogger(c.App.ErrWriter, c.Bool("verbose"))

	cfgFile, err := filepath.Abs(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("配置文件路径无效：%v", err), exitUsage)
	}

	gin.SetMode(gin.ReleaseMode)
	h := server.NewHandler(cfgFile, match.Default(), log)
	srv := &http.Server{
		Addr:              c.String("addr"),
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "config": cfgFile}).Info("Web 界面已启动：http://" + srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return cli.Exit(fmt.Sprintf("监听失败：%v", err), exitRuntime)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return cli.Exit(fmt.Sprintf("关闭服务失败：%v", err), exitRuntime)
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    !isTTY(w),
	})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
