package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"storebackend/internal/config"
	"storebackend/internal/middleware"
	"storebackend/internal/repository"
	"storebackend/internal/usecase"
)

type AddCartRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Status    string `json:"status"`
}

// 部分更新なのでpointerで「指定なし」を区別する
type UpdateCartItemRequest struct {
	Quantity *int64  `json:"quantity"`
	Status   *string `json:"status"`
}

// CartHandler はカート系のHTTP層。全ルート認証必須。
type CartHandler struct {
	uc *usecase.CartUsecase
}

func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	)

	g.GET("", h.show)
	g.POST("", h.add)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

func (h *CartHandler) show(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) add(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in := usecase.AddCartInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Status:    req.Status,
	}
	out, err := h.uc.AddToCart(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	itemID, err := cartItemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in := usecase.UpdateCartItemInput{
		Quantity: req.Quantity,
		Status:   req.Status,
	}
	out, err := h.uc.UpdateCartItem(c.Request().Context(), userID, itemID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) remove(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	itemID, err := cartItemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.DeleteCartItem(c.Request().Context(), userID, itemID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func cartItemID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
