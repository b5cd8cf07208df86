// package playground serves a web page and a JSON API for compiling programs.
package playground

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"go.brendoncarroll.net/exp/slices2"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/zap"

	"ufork.dev/uscheme"
	"ufork.dev/uscheme/scheme"
	"ufork.dev/uscheme/scheme/build"
)

// Filename is the name given to sources compiled by the playground.
const Filename = "playground.scm"

const example = `(define fact
  (lambda (n)
    (if (= n 0)
        1
        (* n (fact (- n 1))))))
(fact 5)
`

// devPath is the path to the views from the directory the application is run.
// when it is empty the embedded views are used.
var devPath = "" // "./playground"

type Server struct {
	bc    *build.Context
	app   *fiber.App
	bgCtx context.Context
}

// New creates a server which compiles through bc.
func New(bc *build.Context) *Server {
	s := &Server{bc: bc, bgCtx: context.Background()}

	var renderer *html.Engine
	if devPath != "" {
		renderer = html.New(devPath, ".html")
		renderer.Reload(true)
	} else {
		renderer = html.NewFileSystem(http.FS(viewFS), ".html")
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Views:                 renderer,
		BodyLimit:             2 * uscheme.MaxSourceSize,
	})
	// views
	app.Get("/", s.home)
	app.Post("/compile", s.postCompile)

	v1 := app.Group("/v1")
	v1.Post("/compile", s.compileJSON)
	v1.Post("/parse", s.parseJSON)
	v1.Get("/ws", websocket.New(s.handleWS))
	s.app = app
	return s
}

func Serve(ctx context.Context, l net.Listener, bc *build.Context) error {
	return New(bc).Serve(ctx, l)
}

// Serve serves on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.bgCtx = ctx
	logctx.Infof(ctx, "serving on %v", l.Addr())
	go func() {
		<-ctx.Done()
		s.app.Shutdown()
	}()
	return s.app.Listener(l)
}

func (s *Server) home(c *fiber.Ctx) error {
	return c.Render("view/home", struct {
		Hostname string
		Source   string
	}{
		Hostname: c.Hostname(),
		Source:   example,
	}, "view/layout")
}

func (s *Server) postCompile(c *fiber.Ctx) error {
	src := c.FormValue("source")
	res := s.compile(src)
	return c.Render("view/result", struct {
		Source string
		Asm    string
		Defs   []string
		Errors []string
	}{
		Source: src,
		Asm:    res.Asm,
		Defs:   res.Defs,
		Errors: res.Errors,
	}, "view/layout")
}

type sourceRequest struct {
	Source string `json:"source"`
}

type compileResult struct {
	Asm    string          `json:"asm,omitempty"`
	Module json.RawMessage `json:"module,omitempty"`
	Defs   []string        `json:"defs,omitempty"`
	Errors []string        `json:"errors"`
}

type parseResult struct {
	Forms  []string `json:"forms"`
	Errors []string `json:"errors"`
}

func (s *Server) compileJSON(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(s.compile(req.Source))
}

func (s *Server) parseJSON(c *fiber.Ctx) error {
	var req sourceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	res := parseResult{Forms: []string{}, Errors: []string{}}
	forms, err := scheme.Parse(req.Source)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	} else {
		res.Forms = slices2.Map(forms, scheme.PrintString)
	}
	return c.JSON(res)
}

// compile never fails, errors are reported in the result.
func (s *Server) compile(src string) compileResult {
	ctx := s.bgCtx
	res := compileResult{Errors: []string{}}
	art, err := s.bc.BuildSource(ctx, Filename, []byte(src))
	if err != nil {
		logctx.Debug(ctx, "compile failed", zap.Error(err))
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	res.Asm = art.Asm
	res.Module = art.Module
	res.Defs = art.Defs
	return res
}

// handleWS compiles each text message and replies with the result.
func (s *Server) handleWS(c *websocket.Conn) {
	ctx := s.bgCtx
	logctx.Info(ctx, "started websocket", zap.Stringer("remote", c.RemoteAddr()))
	defer logctx.Info(ctx, "closing websocket", zap.Stringer("remote", c.RemoteAddr()))
	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, net.ErrClosed) {
				logctx.Error(ctx, "handling websocket", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if err := c.WriteJSON(s.compile(string(data))); err != nil {
			logctx.Error(ctx, "handling websocket", zap.Error(err))
			return
		}
	}
}

//go:embed view/*
var viewFS embed.FS
