package repository

import (
	"time"

	"github.com/postmangpx/postmangpx/internal/domain"
)

// MessageModel is the persistence model for the messages table.
type MessageModel struct {
	ID               string                 `gorm:"type:uuid;primaryKey"`
	CredentialID     string                 `gorm:"type:uuid;not null;index"`
	ChannelID        *string                `gorm:"type:uuid"`
	ToAddress        string                 `gorm:"type:varchar(320);not null"`
	CC               *string                `gorm:"type:text"`
	BCC              *string                `gorm:"type:text"`
	Subject          string                 `gorm:"type:varchar(500);not null"`
	HTMLContent      *string                `gorm:"type:text"`
	TextContent      *string                `gorm:"type:text"`
	Status           domain.Status          `gorm:"type:varchar(20);not null"`
	DeliveryStatus   *domain.DeliveryStatus `gorm:"type:varchar(20)"`
	DeliveryResponse *string                `gorm:"type:text"`
	FailureReason    *string                `gorm:"type:text"`
	AttemptCount     int                    `gorm:"not null;default:0"`
	ExternalID       *string                `gorm:"type:varchar(255)"`
	SentAt           *time.Time             `gorm:"type:timestamptz"`
	DeliveredAt      *time.Time             `gorm:"type:timestamptz"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (MessageModel) TableName() string {
	return "messages"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	MessageID     string  `gorm:"type:uuid;not null"`
	ChannelID     string  `gorm:"type:uuid;not null"`
	AttemptNumber int     `gorm:"not null"`
	StatusCode    *int    `gorm:"type:int"`
	ResponseBody  *string `gorm:"type:text"`
	Error         *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// CredentialModel is the persistence model for the credentials table.
type CredentialModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	CallerID       string `gorm:"type:uuid;not null;index"`
	Name           string `gorm:"type:varchar(255);not null"`
	KeyPrefix      string `gorm:"type:varchar(20);not null"`
	KeyDigest      string `gorm:"type:varchar(64);not null"`
	IsActive       bool   `gorm:"not null;default:true"`
	RateLimit      int    `gorm:"not null;default:100"`
	RateWindowSecs int    `gorm:"not null;default:60"`
	CreatedAt      time.Time
	LastUsedAt     *time.Time `gorm:"type:timestamptz"`
}

func (CredentialModel) TableName() string {
	return "credentials"
}

// ChannelModel is the persistence model for the channels table.
type ChannelModel struct {
	ID        string             `gorm:"type:uuid;primaryKey"`
	CallerID  string             `gorm:"type:uuid;not null;index"`
	Name      string             `gorm:"type:varchar(255);not null"`
	Type      domain.ChannelType `gorm:"type:varchar(50);not null"`
	Host      string             `gorm:"type:varchar(255)"`
	Port      int                `gorm:"type:int"`
	Username  string             `gorm:"type:varchar(255)"`
	Password  string             `gorm:"type:varchar(255)"`
	UseTLS    bool               `gorm:"not null;default:true"`
	Endpoint  string             `gorm:"type:varchar(2048)"`
	FromAddr  string             `gorm:"type:varchar(320)"`
	IsActive  bool               `gorm:"not null;default:true"`
	Priority  int                `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (ChannelModel) TableName() string {
	return "channels"
}

// CallerModel is the persistence model for the callers table.
type CallerModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Username     string `gorm:"type:varchar(80);not null"`
	PasswordHash string `gorm:"type:varchar(256);not null"`
	Role         string `gorm:"type:varchar(20);not null;default:user"`
	CreatedAt    time.Time
	LastLogin    *time.Time `gorm:"type:timestamptz"`
}

func (CallerModel) TableName() string {
	return "callers"
}

func messageModelFromDomain(m *domain.Message) *MessageModel {
	if m == nil {
		return nil
	}

	return &MessageModel{
		ID:               m.ID,
		CredentialID:     m.CredentialID,
		ChannelID:        m.ChannelID,
		ToAddress:        m.To,
		CC:               m.CC,
		BCC:              m.BCC,
		Subject:          m.Subject,
		HTMLContent:      m.HTMLContent,
		TextContent:      m.TextContent,
		Status:           m.Status,
		DeliveryStatus:   m.DeliveryStatus,
		DeliveryResponse: m.DeliveryResponse,
		FailureReason:    m.FailureReason,
		AttemptCount:     m.AttemptCount,
		ExternalID:       m.ExternalID,
		SentAt:           m.SentAt,
		DeliveredAt:      m.DeliveredAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func messageModelToDomain(m *MessageModel) *domain.Message {
	if m == nil {
		return nil
	}

	return &domain.Message{
		ID:               m.ID,
		CredentialID:     m.CredentialID,
		ChannelID:        m.ChannelID,
		To:               m.ToAddress,
		CC:               m.CC,
		BCC:              m.BCC,
		Subject:          m.Subject,
		HTMLContent:      m.HTMLContent,
		TextContent:      m.TextContent,
		Status:           m.Status,
		DeliveryStatus:   m.DeliveryStatus,
		DeliveryResponse: m.DeliveryResponse,
		FailureReason:    m.FailureReason,
		AttemptCount:     m.AttemptCount,
		ExternalID:       m.ExternalID,
		SentAt:           m.SentAt,
		DeliveredAt:      m.DeliveredAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:            a.ID,
		MessageID:     a.MessageID,
		ChannelID:     a.ChannelID,
		AttemptNumber: a.AttemptNumber,
		StatusCode:    a.StatusCode,
		ResponseBody:  a.ResponseBody,
		Error:         a.Error,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:            m.ID,
		MessageID:     m.MessageID,
		ChannelID:     m.ChannelID,
		AttemptNumber: m.AttemptNumber,
		StatusCode:    m.StatusCode,
		ResponseBody:  m.ResponseBody,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
	}
}

func credentialModelFromDomain(c *domain.Credential) *CredentialModel {
	if c == nil {
		return nil
	}

	return &CredentialModel{
		ID:             c.ID,
		CallerID:       c.CallerID,
		Name:           c.Name,
		KeyPrefix:      c.KeyPrefix,
		KeyDigest:      c.KeyDigest,
		IsActive:       c.IsActive,
		RateLimit:      c.RateLimit,
		RateWindowSecs: c.RateWindowSecs,
		CreatedAt:      c.CreatedAt,
		LastUsedAt:     c.LastUsedAt,
	}
}

func credentialModelToDomain(m *CredentialModel) *domain.Credential {
	if m == nil {
		return nil
	}

	return &domain.Credential{
		ID:             m.ID,
		CallerID:       m.CallerID,
		Name:           m.Name,
		KeyPrefix:      m.KeyPrefix,
		KeyDigest:      m.KeyDigest,
		IsActive:       m.IsActive,
		RateLimit:      m.RateLimit,
		RateWindowSecs: m.RateWindowSecs,
		CreatedAt:      m.CreatedAt,
		LastUsedAt:     m.LastUsedAt,
	}
}

func channelModelFromDomain(c *domain.Channel) *ChannelModel {
	if c == nil {
		return nil
	}

	return &ChannelModel{
		ID:        c.ID,
		CallerID:  c.CallerID,
		Name:      c.Name,
		Type:      c.Type,
		Host:      c.Host,
		Port:      c.Port,
		Username:  c.Username,
		Password:  c.Password,
		UseTLS:    c.UseTLS,
		Endpoint:  c.Endpoint,
		FromAddr:  c.From,
		IsActive:  c.IsActive,
		Priority:  c.Priority,
		CreatedAt: c.CreatedAt,
	}
}

func channelModelToDomain(m *ChannelModel) *domain.Channel {
	if m == nil {
		return nil
	}

	return &domain.Channel{
		ID:        m.ID,
		CallerID:  m.CallerID,
		Name:      m.Name,
		Type:      m.Type,
		Host:      m.Host,
		Port:      m.Port,
		Username:  m.Username,
		Password:  m.Password,
		UseTLS:    m.UseTLS,
		Endpoint:  m.Endpoint,
		From:      m.FromAddr,
		IsActive:  m.IsActive,
		Priority:  m.Priority,
		CreatedAt: m.CreatedAt,
	}
}

func callerModelFromDomain(c *domain.Caller) *CallerModel {
	if c == nil {
		return nil
	}

	return &CallerModel{
		ID:           c.ID,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
		CreatedAt:    c.CreatedAt,
		LastLogin:    c.LastLogin,
	}
}

func callerModelToDomain(m *CallerModel) *domain.Caller {
	if m == nil {
		return nil
	}

	return &domain.Caller{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		CreatedAt:    m.CreatedAt,
		LastLogin:    m.LastLogin,
	}
}
