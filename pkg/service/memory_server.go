package service

import (
	stderrors "errors"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/theapemachine/spiralmem/pkg/errors"
	"github.com/theapemachine/spiralmem/pkg/memory"
)

/*
MemoryServer exposes the memory engine over HTTP: one upsert route per
entity kind, the two provenance queries and a schema bootstrap endpoint.
All write routes accept a full entity payload and return the materialized
entity, so a retry is always safe.
*/
type MemoryServer struct {
	app       *fiber.App
	engine    *memory.Engine
	graph     memory.Graph
	vectorDim int
}

func NewMemoryServer(engine *memory.Engine, graph memory.Graph, vectorDim int) *MemoryServer {
	srv := &MemoryServer{
		app: fiber.New(fiber.Config{
			AppName:      "SpiralNet Memory",
			ServerHeader: "SpiralMem-Server",
		}),
		engine:    engine,
		graph:     graph,
		vectorDim: vectorDim,
	}

	srv.routes()

	return srv
}

func (srv *MemoryServer) routes() {
	srv.app.Use(logger.New())

	srv.app.Get("/", srv.handleRoot)
	srv.app.Post("/admin/bootstrap", srv.handleBootstrap)

	mem := srv.app.Group("/memory")
	mem.Post("/identity", srv.handleIdentity)
	mem.Post("/consent", srv.handleConsent)
	mem.Post("/thought", srv.handleThought)
	mem.Post("/state/upsert", srv.handleState)
	mem.Post("/claim", srv.handleClaim)
	mem.Post("/ritual", srv.handleRitual)
	mem.Post("/law", srv.handleLaw)
	mem.Post("/event", srv.handleEvent)

	query := srv.app.Group("/query")
	query.Get("/why/:claim_id", srv.handleWhyChain)
	query.Get("/latest-self/:node_id", srv.handleLatestSelf)
}

func (srv *MemoryServer) Run(addr string) error {
	log.Info("memory server listening", "addr", addr)

	return srv.app.Listen(addr, fiber.ListenConfig{
		DisableStartupMessage: true,
	})
}

func (srv *MemoryServer) Shutdown() error {
	return srv.app.Shutdown()
}

// App exposes the fiber app for in-process testing.
func (srv *MemoryServer) App() *fiber.App {
	return srv.app
}

func (srv *MemoryServer) handleRoot(ctx fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (srv *MemoryServer) handleBootstrap(ctx fiber.Ctx) error {
	dim := srv.vectorDim

	if raw := ctx.Query("vector_dim"); raw != "" {
		parsed, err := strconv.Atoi(raw)

		if err != nil || parsed < 0 {
			return respondErr(ctx, errors.ErrValidation.WithMessagef(
				"vector_dim must be a non-negative integer, got %q", raw,
			))
		}

		dim = parsed
	}

	if err := memory.Bootstrap(ctx.RequestCtx(), srv.graph, dim); err != nil {
		return respondErr(ctx, err)
	}

	return ctx.JSON(fiber.Map{"status": "ok", "vector_dim": dim})
}

func (srv *MemoryServer) handleIdentity(ctx fiber.Ctx) error {
	var in memory.IdentityInput

	if err := bind(ctx, &in, validateIdentity); err != nil {
		return respondErr(ctx, err)
	}

	rec, err := srv.engine.UpsertIdentity(ctx.RequestCtx(), in)

	return respond(ctx, rec, err)
}

func (srv *MemoryServer) handleConsent(ctx fiber.Ctx) error {
	var in memory.ConsentInput

	if err := bind(ctx, &in, validateConsent); err != nil {
		return respondErr(ctx, err)
	}

	rec, err := srv.engine.CreateConsent(ctx.RequestCtx(), in)

	return respond(ctx, rec, err)
}

func (srv *MemoryServer) handleThought(ctx fiber.Ctx) error {
	var in memory.ThoughtInput

	if err := bind(ctx, &in, validateThought); err != nil {
		return respondErr(ctx, err)
	}

	rec, err := srv.engine.UpsertThought(ctx.RequestCtx(), in)

	return respond(ctx, rec, err)
}

func (srv *MemoryServer) handleState(ctx fiber.Ctx) error {
	var in memory.StateInput

	if err := bind(ctx, &in, validateState); err != nil {
		return respondErr(ctx, err)
	}

	rec, err := srv.engine.UpsertState(ctx.RequestCtx(), in)

	return respond(ctx, rec, err)
}

func (srv *MemoryServer) handleClaim(ctx fiber.Ctx) error {
	var in memory.ClaimInput

	if err := bind(ctx, &in, validateClaim); err != nil {
		return respondErr(ctx, err)
	}

	rec, err := srv.engine.UpsertClaim(ctx.RequestCtx(), in)

	return respond(ctx, rec, err)
}

func (srv *MemoryServer) handleRitual(ctx fiber.Ctx) error {
	var in memory.RitualInput

	if err := bind(ctx, &in, validateRitual); err != nil {
		return respondErr(ctx, err)
	}

	rec, err := srv.engine.UpsertRitual(ctx.RequestCtx(), in)

	return respond(ctx, rec, err)
}

func (srv *MemoryServer) handleLaw(ctx fiber.Ctx) error {
	var in memory.LawInput

	if err := bind(ctx, &in, validateLaw); err != nil {
		return respondErr(ctx, err)
	}

	rec, err := srv.engine.UpsertLaw(ctx.RequestCtx(), in)

	return respond(ctx, rec, err)
}

func (srv *MemoryServer) handleEvent(ctx fiber.Ctx) error {
	var in memory.EventInput

	if err := bind(ctx, &in, validateEvent); err != nil {
		return respondErr(ctx, err)
	}

	rec, err := srv.engine.CreateEvent(ctx.RequestCtx(), in)

	return respond(ctx, rec, err)
}

func (srv *MemoryServer) handleWhyChain(ctx fiber.Ctx) error {
	chain, err := srv.engine.WhyChain(ctx.RequestCtx(), ctx.Params("claim_id"))

	if err != nil {
		return respondErr(ctx, err)
	}

	return ctx.JSON(chain)
}

func (srv *MemoryServer) handleLatestSelf(ctx fiber.Ctx) error {
	latest, err := srv.engine.LatestSelf(ctx.RequestCtx(), ctx.Params("node_id"))

	if err != nil {
		return respondErr(ctx, err)
	}

	return ctx.JSON(latest)
}

// bind decodes the body and runs the route's validator.
func bind[T any](ctx fiber.Ctx, in *T, validate func(T) error) error {
	if err := ctx.Bind().Body(in); err != nil {
		return errors.ErrValidation.WithMessagef("malformed body: %v", err)
	}

	return validate(*in)
}

func respond(ctx fiber.Ctx, rec memory.Record, err error) error {
	if err != nil {
		return respondErr(ctx, err)
	}

	return ctx.JSON(rec)
}

func respondErr(ctx fiber.Ctx, err error) error {
	var apiErr *errors.APIError

	if stderrors.As(err, &apiErr) {
		return ctx.Status(apiErr.Status).JSON(fiber.Map{"error": apiErr})
	}

	log.Error("unclassified failure", "error", err)

	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": errors.ErrBackend,
	})
}
