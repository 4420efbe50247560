package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nusenusewhen-bot/lights-mm/chain"
	"github.com/nusenusewhen-bot/lights-mm/config"
	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/logger"
	"github.com/nusenusewhen-bot/lights-mm/pkg/version"
	"github.com/nusenusewhen-bot/lights-mm/service"
	"github.com/nusenusewhen-bot/lights-mm/tickets"
	"github.com/nusenusewhen-bot/lights-mm/wallet"
)

// actor identity comes from the trusted front-end process, which has
// already authenticated its users with the chat platform
const actorHeader = "X-Actor-ID"

type HttpService struct {
	cfg            config.Config
	db             *gorm.DB
	ticketsService tickets.TicketsService
	walletService  wallet.WalletService
	chainClient    chain.Client
}

func NewHttpService(svc service.Service) *HttpService {
	return &HttpService{
		cfg:            svc.GetConfig(),
		db:             svc.GetDB(),
		ticketsService: svc.GetTicketsService(),
		walletService:  svc.GetWalletService(),
		chainClient:    svc.GetChainClient(),
	}
}

func (httpSvc *HttpService) RegisterSharedRoutes(e *echo.Echo) {
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			logger.HttpLogger.Info().
				Str("uri", values.URI).
				Int("status", values.Status).
				Str("remote_ip", values.RemoteIP).
				Msg("Handled request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/api/info", httpSvc.infoHandler)
	e.GET("/api/balance", httpSvc.balanceHandler)
	e.GET("/api/tickets", httpSvc.listTicketsHandler)
	e.GET("/api/tickets/:id", httpSvc.getTicketHandler)
	e.POST("/api/tickets", httpSvc.createTicketHandler)
	e.POST("/api/tickets/:id/actions", httpSvc.ticketActionHandler)
	e.POST("/api/send", httpSvc.sendHandler)
}

type infoResponse struct {
	Version string `json:"version"`
	Network string `json:"network"`
}

func (httpSvc *HttpService) infoHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, &infoResponse{
		Version: version.Tag,
		Network: httpSvc.cfg.GetNetwork(),
	})
}

type balanceResponse struct {
	Address     string `json:"address"`
	BalanceSats uint64 `json:"balance_sats"`
	BalanceLtc  string `json:"balance_ltc"`
	BalanceUSD  string `json:"balance_usd"`
	PriceUSD    string `json:"price_usd"`
}

func (httpSvc *HttpService) balanceHandler(c echo.Context) error {
	if !httpSvc.cfg.IsAdmin(c.Request().Header.Get(actorHeader)) {
		return echo.NewHTTPError(http.StatusForbidden, "admin only")
	}

	ctx := c.Request().Context()
	address, err := httpSvc.walletService.DeriveAddress(0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	balanceSats, err := httpSvc.walletService.Balance(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	priceUSD := httpSvc.chainClient.PriceUSD(ctx)
	balanceLtc := decimal.NewFromInt(int64(balanceSats)).Div(decimal.NewFromInt(constants.SatsPerCoin))

	return c.JSON(http.StatusOK, &balanceResponse{
		Address:     address,
		BalanceSats: balanceSats,
		BalanceLtc:  balanceLtc.StringFixed(8),
		BalanceUSD:  balanceLtc.Mul(priceUSD).StringFixed(2),
		PriceUSD:    priceUSD.StringFixed(2),
	})
}

func (httpSvc *HttpService) listTicketsHandler(c echo.Context) error {
	if !httpSvc.cfg.IsAdmin(c.Request().Header.Get(actorHeader)) {
		return echo.NewHTTPError(http.StatusForbidden, "admin only")
	}

	result, err := httpSvc.ticketsService.ListTickets()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (httpSvc *HttpService) getTicketHandler(c echo.Context) error {
	ticketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	ticket, err := httpSvc.ticketsService.GetTicket(uint(ticketID))
	if err != nil {
		return ticketErrorToHTTP(err)
	}
	return c.JSON(http.StatusOK, ticket)
}

type createTicketRequest struct {
	ChannelID     string `json:"channel_id"`
	GuildID       string `json:"guild_id"`
	CreatorID     string `json:"creator_id"`
	OtherUserID   string `json:"other_user_id"`
	CreatorGiving string `json:"creator_giving"`
	OtherGiving   string `json:"other_giving"`
}

func (httpSvc *HttpService) createTicketHandler(c echo.Context) error {
	var req createTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ChannelID == "" || req.CreatorID == "" || req.OtherUserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel_id, creator_id and other_user_id are required")
	}

	ticket, err := httpSvc.ticketsService.CreateTicket(c.Request().Context(),
		req.ChannelID, req.GuildID, req.CreatorID, req.OtherUserID, req.CreatorGiving, req.OtherGiving)
	if err != nil {
		return ticketErrorToHTTP(err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

type ticketActionRequest struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
	Role    string `json:"role,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Address string `json:"address,omitempty"`
}

func (httpSvc *HttpService) ticketActionHandler(c echo.Context) error {
	ticketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	var req ticketActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	var action tickets.Action
	switch req.Type {
	case "role_selected":
		action = tickets.RoleSelected{TicketID: uint(ticketID), Role: req.Role, UserID: req.UserID}
	case "role_reset":
		action = tickets.RoleReset{TicketID: uint(ticketID), UserID: req.UserID}
	case "amount_entered":
		action = tickets.AmountEntered{TicketID: uint(ticketID), UserID: req.UserID, Amount: req.Amount}
	case "amount_confirmed":
		action = tickets.AmountConfirmed{TicketID: uint(ticketID), UserID: req.UserID}
	case "amount_reset":
		action = tickets.AmountReset{TicketID: uint(ticketID), UserID: req.UserID}
	case "receiver_address_provided":
		action = tickets.ReceiverAddressProvided{TicketID: uint(ticketID), UserID: req.UserID, Address: req.Address}
	case "ticket_delete_requested":
		action = tickets.TicketDeleteRequested{TicketID: uint(ticketID), UserID: req.UserID}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown action type: "+req.Type)
	}

	err = httpSvc.ticketsService.HandleAction(c.Request().Context(), action)
	if err != nil {
		return ticketErrorToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type sendRequest struct {
	Address   string `json:"address"`
	AmountLtc string `json:"amount_ltc"`
	SendAll   bool   `json:"send_all,omitempty"`
}

type sendResponse struct {
	TxHash string `json:"tx_hash"`
}

// sendHandler is the operator's manual escape hatch (sweeps, stuck
// settlements). Never called by the ticket flow itself.
func (httpSvc *HttpService) sendHandler(c echo.Context) error {
	if !httpSvc.cfg.IsAdmin(c.Request().Header.Get(actorHeader)) {
		return echo.NewHTTPError(http.StatusForbidden, "admin only")
	}

	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !wallet.IsValidAddress(req.Address) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid LTC address format")
	}

	ctx := c.Request().Context()
	var txHash string
	var err error
	if req.SendAll {
		txHash, err = httpSvc.walletService.SendAll(ctx, req.Address, 0)
	} else {
		amount, parseErr := decimal.NewFromString(req.AmountLtc)
		if parseErr != nil || !amount.IsPositive() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid amount")
		}
		amountSats := uint64(amount.Mul(decimal.NewFromInt(constants.SatsPerCoin)).Floor().IntPart())
		txHash, err = httpSvc.walletService.BuildAndBroadcastSend(ctx, req.Address, amountSats, 0)
	}
	if err != nil {
		if wallet.IsFundsError(err) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, &sendResponse{TxHash: txHash})
}

func ticketErrorToHTTP(err error) *echo.HTTPError {
	switch {
	case tickets.IsTicketNotFoundError(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case tickets.IsValidationError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case tickets.IsPermissionError(err):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case tickets.IsStateError(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case wallet.IsFundsError(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
