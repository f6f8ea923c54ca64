// Package web assembles the fiber application: templates, static assets,
// the security core and every page handler.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoStudio-Admin/GoStudio-Admin/internal/auth"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/config"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/csrf"
	fiberlogger "github.com/GoStudio-Admin/GoStudio-Admin/internal/logger/adapter/fiber"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/ratelimit"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/session"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler"
	adminpermission "github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/admin/permission"
	adminrole "github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/admin/role"
	adminuser "github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/admin/user"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/appointment"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/authapi"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/category"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/customer"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/dashboard"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/denied"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/login"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/logout"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/page"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/product"
	"github.com/GoStudio-Admin/GoStudio-Admin/internal/web/handler/testimonial"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	gate         *auth.Gate
}

// Port returns the configured listening port.
func (s *Service) Port() int {
	return s.cfg.Webserver.Port
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration, database and
// session storage backend.
func New(cfg *config.Config, db *gorm.DB, sessionStorage storage.Storage) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	httpFS := http.FS(templateEmbedFS{embeddedTemplates})
	templateEngine := html.NewFileSystem(httpFS, ".gohtml")

	// in dev mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("dev mode enabled: using local filesystem for templates")
	}

	// Add template helper functions
	templateEngine.AddFunc("iterate", func(count int) []int {
		result := make([]int, count)
		for i := range result {
			result[i] = i
		}

		return result
	})
	templateEngine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	templateEngine.AddFunc("sub", func(a, b int) int {
		return a - b
	})

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "GoStudio-Admin",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			Views:          templateEngine,
		},
	)

	// access logging
	app.Use(fiberlogger.New(fiberlogger.Config{Config: cfg.Log}))

	if !cfg.Webserver.DisableRecover {
		app.Use(fiberrecover.New())
	}

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     false,
			},
		),
	)

	// assemble the security core
	sessions := session.NewManager(
		sessionStorage,
		cfg.Webserver.Session.CookieName,
		cfg.Webserver.Session.ExpiryTime,
		cfg.DevMode,
	)
	guard := csrf.NewGuard(
		cfg.Webserver.CSRF.CookieName,
		cfg.Webserver.CSRF.TokenLifetime,
		cfg.DevMode,
	)
	limiter := ratelimit.NewLimiter(
		ratelimit.NewMemoryStore(),
		ratelimit.Policy{
			Name:   "api",
			Limit:  cfg.Webserver.RateLimit.API.Limit,
			Window: cfg.Webserver.RateLimit.API.Window,
		},
		ratelimit.Policy{
			Name:   "auth",
			Limit:  cfg.Webserver.RateLimit.Auth.Limit,
			Window: cfg.Webserver.RateLimit.Auth.Window,
		},
	)

	rbac := auth.NewService(db)
	gate := auth.NewGate(auth.NewIdentity(db, sessions), rbac)

	// resolve the caller once per request for templates and login redirects
	app.Use(SessionMiddleware(gate))

	// init web service
	service := &Service{
		cfg:  cfg,
		App:  app,
		db:   db,
		gate: gate,
	}

	hc := &handler.Context{
		Cfg:      cfg,
		DB:       db,
		Gate:     gate,
		RBAC:     rbac,
		Sessions: sessions,
		CSRF:     guard,
		Limiter:  limiter,
	}

	// init handlers (they register their own routes with permission checks)
	login.Handler.Init(app, hc)
	logout.Handler.Init(app, hc)
	authapi.Handler.Init(app, hc)
	denied.Handler.Init(app, hc)
	dashboard.Handler.Init(app, hc)
	product.Handler.Init(app, hc)
	category.Handler.Init(app, hc)
	appointment.Handler.Init(app, hc)
	customer.Handler.Init(app, hc)
	page.Handler.Init(app, hc)
	testimonial.Handler.Init(app, hc)
	adminuser.Handler.Init(app, hc)
	adminrole.Handler.Init(app, hc)
	adminpermission.Handler.Init(app, hc)

	// redirect root to dashboard
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/dashboard")
	})

	return service
}
