package sandbox

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"tmsops/core/tms"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server is a local in-memory rendition of the TMS API used to rehearse
// operator runs with real HTTP traffic. It reproduces the behaviors the
// client engine depends on: pagination with the Pagination header, 409
// on duplicate creation, 400 on unlinked key-links listings, and an
// optional share of injected 429 responses.
type Server struct {
	store *Store
	log   *zap.Logger

	// Token, when non-empty, must match the Bearer Authorization header.
	Token string
	// RateLimitEvery injects a 429 with Retry-After: 1 on every Nth
	// request, to exercise the client's retry path. Zero disables it.
	RateLimitEvery int

	served atomic.Int64
}

// NewServer creates a sandbox server over the given store.
func NewServer(store *Store, log *zap.Logger) *Server {
	return &Server{store: store, log: log}
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(s.auth)
	app.Use(s.rateLimit)

	app.Get("/projects", s.handleListProjects)
	app.Get("/projects/:projectId/keys", s.handleListKeys)
	app.Get("/projects/:projectId/keys/:keyId/key_links", s.handleListLinks)
	app.Post("/projects/:projectId/keys/:keyId/key_links", s.handleCreateLink)
	app.Get("/projects/:projectId/users", s.handleListUsers)
	app.Delete("/projects/:projectId/users/:userId", s.handleDeleteUser)
	app.Post("/domains", s.handleCreateEntity("domain"))
	app.Post("/domains/:domainId/subDomains", s.handleCreateEntity("subdomain"))
	app.Post("/clients", s.handleCreateEntity("client"))
	app.Post("/businessUnits", s.handleCreateEntity("business_unit"))

	return app
}

// Listen runs the server until the listener fails or is shut down.
func (s *Server) Listen(addr string) error {
	s.log.Info("sandbox listening", zap.String("addr", addr))
	return s.App().Listen(addr)
}

// Seed populates the store with a small rehearsal account: a parent
// project whose keys partially exist in the child projects, and user
// rosters spread around a cutoff.
func (s *Server) Seed() {
	parent := s.store.AddProject("parent")
	childA := s.store.AddProject("web-app")
	childB := s.store.AddProject("mobile-app")

	for i := 0; i < 250; i++ {
		name := "greeting." + strconv.Itoa(i)
		s.store.AddKey(parent.ID, name)
		if i%2 == 0 {
			s.store.AddKey(childA.ID, name)
		}
		if i%3 == 0 {
			s.store.AddKey(childB.ID, name)
		}
	}

	now := time.Now()
	for _, p := range []tms.Project{parent, childA, childB} {
		for i := 0; i < 160; i++ {
			s.store.AddUser(p.ID, "user"+strconv.Itoa(rand.Intn(1_000_000)),
				now.Add(-time.Duration(i)*time.Hour))
		}
	}

	s.log.Info("seeded sandbox account",
		zap.String("parent_project", parent.ID),
		zap.Strings("child_projects", []string{childA.ID, childB.ID}))
}

func (s *Server) auth(c *fiber.Ctx) error {
	if s.Token == "" {
		return c.Next()
	}
	if c.Get("Authorization") != "Bearer "+s.Token {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "invalid token",
		})
	}
	return c.Next()
}

func (s *Server) rateLimit(c *fiber.Ctx) error {
	if s.RateLimitEvery <= 0 {
		return c.Next()
	}
	if s.served.Add(1)%int64(s.RateLimitEvery) == 0 {
		c.Set("Retry-After", "1")
		return c.SendStatus(fiber.StatusTooManyRequests)
	}
	return c.Next()
}

func (s *Server) handleListProjects(c *fiber.Ctx) error {
	page, perPage := paging(c)
	return c.JSON(s.store.Projects(page, perPage))
}

func (s *Server) handleListKeys(c *fiber.Ctx) error {
	page, perPage := paging(c)
	keys, pages := s.store.Keys(c.Params("projectId"), page, perPage, c.Query("q"))

	header, _ := json.Marshal(map[string]int{"total_pages_count": pages})
	c.Set("Pagination", string(header))
	return c.JSON(keys)
}

func (s *Server) handleListLinks(c *fiber.Ctx) error {
	children, ok := s.store.Links(c.Params("keyId"))
	if !ok {
		// The real API rejects link listings for never-linked keys.
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "key has no links",
		})
	}

	out := make([]tms.Key, 0, len(children))
	for _, id := range children {
		out = append(out, tms.Key{ID: id})
	}
	return c.JSON(tms.KeyLinks{Children: out})
}

func (s *Server) handleCreateLink(c *fiber.Ctx) error {
	var req tms.KeyLinkRequest
	if err := c.BodyParser(&req); err != nil || len(req.ChildKeyIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "child_key_ids required",
		})
	}

	if !s.store.Link(c.Params("keyId"), req.ChildKeyIDs) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "child key already linked",
		})
	}
	return c.SendStatus(fiber.StatusCreated)
}

func (s *Server) handleListUsers(c *fiber.Ctx) error {
	page, perPage := paging(c)
	return c.JSON(s.store.Users(c.Params("projectId"), page, perPage))
}

func (s *Server) handleDeleteUser(c *fiber.Ctx) error {
	if !s.store.RemoveUser(c.Params("projectId"), c.Params("userId")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "user not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleCreateEntity(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body map[string]string
		if err := c.BodyParser(&body); err != nil || body["name"] == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "name required",
			})
		}

		if !s.store.CreateEntity(kind, body["name"]) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": kind + " already exists",
			})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"name": body["name"],
		})
	}
}

func paging(c *fiber.Ctx) (page, perPage int) {
	page = c.QueryInt("page", 1)
	perPage = c.QueryInt("per_page", 100)
	return page, perPage
}
