// internal/devapi/server.go
package devapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"memoriza-service/internal/domain/auth"
	"memoriza-service/internal/domain/carousel"
	"memoriza-service/internal/middleware"
	xerrors "memoriza-service/internal/pkg/errors"
	"memoriza-service/internal/pkg/jwt"
	"memoriza-service/internal/pkg/permission"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const claimsKey = "claims"

// Messages in the language of the real API.
const (
	msgBadCredentials = "Usuário ou senha inválidos."
	msgDuplicateEmail = "Este e-mail já está cadastrado."
	msgInvalidForm    = "Dados inválidos."
	msgUnauthorized   = "Não autenticado."
	msgForbidden      = "Acesso negado."
	msgNotFound       = "Registro não encontrado."
	msgInternal       = "Erro interno do servidor."
)

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Server is a small stand-in for the Memoriza REST API, used for local runs
// and end-to-end tests.
type Server struct {
	store      Store
	tokens     *jwt.Manager
	bcryptCost int
	logger     *zap.Logger
}

func NewServer(store Store, tokens *jwt.Manager, bcryptCost int, logger *zap.Logger) *Server {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Server{
		store:      store,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Router builds the gin engine serving the API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
	)

	api := r.Group("/api")

	// ==================== Auth ====================
	api.POST("/Auth/login", s.login)
	api.POST("/Auth/register", s.register)

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.Use(s.bearer())
	{
		admin.GET("/groups/:id", s.getGroup)
	}

	// ==================== Carousel ====================
	api.GET("/carousel-items", s.listCarousel)
	items := api.Group("/carousel-items")
	items.Use(s.bearer())
	{
		items.POST("", s.require(permission.ActionCreate), s.createCarousel)
		items.POST("/reorder", s.require(permission.ActionEdit), s.reorderCarousel)
		items.PUT("/:id", s.require(permission.ActionEdit), s.updateCarousel)
		items.DELETE("/:id", s.require(permission.ActionDelete), s.deleteCarousel)
	}

	return r
}

func (s *Server) login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidForm)
		return
	}

	account, err := s.store.FindAccount(c.Request.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			fail(c, http.StatusUnauthorized, msgBadCredentials)
			return
		}
		s.internal(c, "find account", err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, msgBadCredentials)
		return
	}

	s.issue(c, http.StatusOK, account)
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidForm)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.internal(c, "hash password", err)
		return
	}

	account := &auth.Account{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		UserGroupID:  int64Ptr(GroupCustomers),
	}
	if err := s.store.CreateAccount(c.Request.Context(), account); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateEntry) {
			fail(c, http.StatusBadRequest, msgDuplicateEmail)
			return
		}
		s.internal(c, "create account", err)
		return
	}

	s.issue(c, http.StatusOK, account)
}

func (s *Server) issue(c *gin.Context, status int, a *auth.Account) {
	token, jti, err := s.tokens.Generator.Generate(jwt.Subject{
		ID:              a.ID,
		Email:           a.Email,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		IsAdmin:         a.IsAdmin,
		UserGroupID:     a.UserGroupID,
		EmployeeGroupID: a.EmployeeGroupID,
	})
	if err != nil {
		s.internal(c, "sign token", err)
		return
	}

	s.logger.Info("token issued", zap.Int64("account_id", a.ID), zap.String("jti", jti))
	c.JSON(status, gin.H{"token": token, "message": "Login realizado com sucesso."})
}

// getGroup serves a permission group to owners and to members of that
// employee group.
func (s *Server) getGroup(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, msgInvalidForm)
		return
	}

	claims := mustClaims(c)
	member := claims.EmployeeGroupID != nil && *claims.EmployeeGroupID == id
	if !claims.IsOwner() && !member {
		fail(c, http.StatusForbidden, msgForbidden)
		return
	}

	group, err := s.store.GetGroup(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, "get group", err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) listCarousel(c *gin.Context) {
	items, err := s.store.ListCarousel(c.Request.Context())
	if err != nil {
		s.storeError(c, "list carousel", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) createCarousel(c *gin.Context) {
	item, ok := bindItem(c)
	if !ok {
		return
	}
	if err := s.store.CreateCarousel(c.Request.Context(), &item); err != nil {
		s.storeError(c, "create carousel item", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) updateCarousel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, msgInvalidForm)
		return
	}
	item, ok := bindItem(c)
	if !ok {
		return
	}
	item.ID = id

	if err := s.store.UpdateCarousel(c.Request.Context(), &item); err != nil {
		s.storeError(c, "update carousel item", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) deleteCarousel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, msgInvalidForm)
		return
	}
	if err := s.store.DeleteCarousel(c.Request.Context(), id); err != nil {
		s.storeError(c, "delete carousel item", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) reorderCarousel(c *gin.Context) {
	var entries []carousel.ReorderEntry
	if err := c.ShouldBindJSON(&entries); err != nil || len(entries) == 0 {
		fail(c, http.StatusBadRequest, msgInvalidForm)
		return
	}

	primaries := 0
	for _, e := range entries {
		if e.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		fail(c, http.StatusBadRequest, "Exatamente um banner deve ser o principal.")
		return
	}

	if err := s.store.ReorderCarousel(c.Request.Context(), entries); err != nil {
		s.storeError(c, "reorder carousel", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ordem atualizada."})
}

// itemRequest is the item body the proxy sends on create and update.
type itemRequest struct {
	carousel.ItemInput
	DisplayOrder int  `json:"displayOrder"`
	IsPrimary    bool `json:"isPrimary"`
}

// bindItem reads a carousel item and applies the same rules as the admin UI.
func bindItem(c *gin.Context) (carousel.Item, bool) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidForm)
		return carousel.Item{}, false
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return carousel.Item{}, false
	}

	item := req.ToItem()
	item.DisplayOrder = req.DisplayOrder
	item.IsPrimary = req.IsPrimary
	return item, true
}

func (s *Server) storeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, xerrors.ErrNotFound):
		fail(c, http.StatusNotFound, msgNotFound)
	case errors.Is(err, xerrors.ErrInvalidInput):
		fail(c, http.StatusBadRequest, msgInvalidForm)
	default:
		s.internal(c, op, err)
	}
}

func (s *Server) internal(c *gin.Context, op string, err error) {
	s.logger.Error("devapi request failed", zap.String("op", op), zap.Error(err))
	fail(c, http.StatusInternalServerError, msgInternal)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
