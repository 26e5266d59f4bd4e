package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postmangpx/postmangpx/internal/domain"
	"github.com/postmangpx/postmangpx/internal/repository"
	"github.com/postmangpx/postmangpx/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageService interface {
	Submit(ctx context.Context, credential domain.Credential, req service.SubmitRequest) (*domain.Message, error)
	GetStatus(ctx context.Context, id string) (*domain.Message, error)
	Attempts(ctx context.Context, messageID string) ([]domain.DeliveryAttempt, error)
	Confirm(ctx context.Context, id string) (*domain.Message, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error)
}

type MessageHandler struct {
	service MessageService
}

func NewMessageHandler(service MessageService) (*MessageHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("message service is required")
	}
	return &MessageHandler{service: service}, nil
}

func RegisterMessageRoutes(router fiber.Router, service MessageService, auth fiber.Handler) error {
	h, err := NewMessageHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1", auth)
	v1.Post("/send", h.Send)
	v1.Get("/status/:id", h.GetStatus)
	v1.Get("/status/:id/attempts", h.GetAttempts)
	v1.Post("/delivery/:id", h.ConfirmDelivery)
	v1.Get("/messages", h.ListMessages)

	return nil
}

// recipientList accepts either a single string or an array of addresses in
// the request body; arrays are stored comma-joined.
type recipientList string

func (r *recipientList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = recipientList(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or an array of strings")
	}
	*r = recipientList(strings.Join(many, ","))
	return nil
}

type sendRequest struct {
	To         string        `json:"to"`
	CC         recipientList `json:"cc"`
	BCC        recipientList `json:"bcc"`
	Subject    string        `json:"subject"`
	HTML       string        `json:"html"`
	Text       string        `json:"text"`
	ExternalID string        `json:"external_id"`
}

type sendResponse struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	AttemptCount  int     `json:"attempt_count"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

type messageResponse struct {
	ID               string     `json:"id"`
	To               string     `json:"to"`
	CC               *string    `json:"cc,omitempty"`
	BCC              *string    `json:"bcc,omitempty"`
	Subject          string     `json:"subject"`
	Status           string     `json:"status"`
	DeliveryStatus   *string    `json:"delivery_status,omitempty"`
	DeliveryResponse *string    `json:"delivery_response,omitempty"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	AttemptCount     int        `json:"attempt_count"`
	ChannelID        *string    `json:"channel_id,omitempty"`
	ExternalID       *string    `json:"external_id,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type attemptResponse struct {
	ChannelID     string    `json:"channel_id"`
	AttemptNumber int       `json:"attempt_number"`
	StatusCode    *int      `json:"status_code,omitempty"`
	ResponseBody  *string   `json:"response_body,omitempty"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type listMessagesResponse struct {
	Data []messageResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// Send accepts a message and runs the full dispatch loop before responding.
// A failed dispatch is still a 200: the message record carries the outcome.
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	credential, ok := credentialFromContext(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "missing credential")
	}

	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Submit(c.Context(), credential, service.SubmitRequest{
		To:         req.To,
		CC:         string(req.CC),
		BCC:        string(req.BCC),
		Subject:    req.Subject,
		HTML:       req.HTML,
		Text:       req.Text,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(sendResponse{
		ID:            message.ID,
		Status:        message.Status.String(),
		AttemptCount:  message.AttemptCount,
		FailureReason: message.FailureReason,
	})
}

func (h *MessageHandler) GetStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	message, err := h.service.GetStatus(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMessageResponse(message))
}

func (h *MessageHandler) GetAttempts(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	attempts, err := h.service.Attempts(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]attemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, attemptResponse{
			ChannelID:     attempt.ChannelID,
			AttemptNumber: attempt.AttemptNumber,
			StatusCode:    attempt.StatusCode,
			ResponseBody:  attempt.ResponseBody,
			Error:         attempt.Error,
			CreatedAt:     attempt.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message_id": id,
		"attempts":   responses,
	})
}

func (h *MessageHandler) ConfirmDelivery(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	message, err := h.service.Confirm(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMessageResponse(message))
}

func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	messages, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]messageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, toMessageResponse(&messages[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listMessagesResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("page_size", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: page_size must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toMessageResponse(m *domain.Message) messageResponse {
	if m == nil {
		return messageResponse{}
	}

	var deliveryStatus *string
	if m.DeliveryStatus != nil {
		value := m.DeliveryStatus.String()
		deliveryStatus = &value
	}

	return messageResponse{
		ID:               m.ID,
		To:               m.To,
		CC:               m.CC,
		BCC:              m.BCC,
		Subject:          m.Subject,
		Status:           m.Status.String(),
		DeliveryStatus:   deliveryStatus,
		DeliveryResponse: m.DeliveryResponse,
		FailureReason:    m.FailureReason,
		AttemptCount:     m.AttemptCount,
		ChannelID:        m.ChannelID,
		ExternalID:       m.ExternalID,
		SentAt:           m.SentAt,
		DeliveredAt:      m.DeliveredAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidState):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRateExceeded):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
