// Command example serves the todo app.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/pthm/hyper"
	"github.com/pthm/hyper/example/todos"
	"github.com/pthm/hyper/lib/fragment"
)

func main() {
	logger := slog.New(log.NewWithOptions(os.Stderr, log.Options{Prefix: "todos", ReportTimestamp: true}))

	// In production, load the key from the environment.
	locker, err := hyper.NewLocker([]byte("example-key-must-be-32-bytes!!!!"))
	if err != nil {
		logger.Error("create locker", "error", err)
		os.Exit(1)
	}

	renderer := fragment.NewRenderer(todos.Views(),
		fragment.WithContextFuncs(hyper.TemplateFuncs),
		fragment.WithLogger(logger),
	)

	rt := hyper.NewRouter(
		hyper.WithRouterLogger(logger),
		hyper.WithMiddleware(hyper.Middleware(hyper.MiddlewareConfig{Locker: locker, Logger: logger})),
	)
	todos.RegisterRoutes(rt, todos.NewHandlers(todos.NewStore().Seed(), renderer))

	addr := ":8080"
	logger.Info("starting server", "url", "http://localhost"+addr+"/todos")
	if err := http.ListenAndServe(addr, rt.Handler()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
