package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/portcullis/internal/models"
)

// ArchivedEvent is the durable row form of an access event.
type ArchivedEvent struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	UserID          string         `gorm:"size:128;index" json:"user_id"`
	UserName        string         `gorm:"size:255" json:"user_name"`
	AccessPointID   string         `gorm:"size:128;index" json:"access_point_id"`
	AccessPointName string         `gorm:"size:255" json:"access_point_name"`
	Method          string         `gorm:"size:32;index" json:"method"`
	Action          string         `gorm:"size:16;not null;index" json:"action"`
	Result          string         `gorm:"size:16;not null" json:"result"`
	Severity        string         `gorm:"size:16;index" json:"severity"`
	IsAnomaly       bool           `gorm:"index" json:"is_anomaly"`
	RiskScore       int            `json:"risk_score"`
	IPAddress       string         `gorm:"size:64" json:"ip_address"`
	UserAgent       string         `gorm:"size:512" json:"user_agent"`
	SessionID       string         `gorm:"size:128" json:"session_id"`
	Details         datatypes.JSON `json:"details"`
	OccurredAt      time.Time      `gorm:"not null;index" json:"occurred_at"`
	CreatedAt       time.Time      `json:"created_at"`
}

// TableName pins the table name independent of gorm naming strategy.
func (ArchivedEvent) TableName() string {
	return "access_events"
}

func (e *ArchivedEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func toRow(event models.AccessEvent) (ArchivedEvent, error) {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return ArchivedEvent{}, fmt.Errorf("archive: marshal details: %w", err)
	}
	return ArchivedEvent{
		ID:              event.ID,
		UserID:          event.UserID,
		UserName:        event.UserName,
		AccessPointID:   event.AccessPointID,
		AccessPointName: event.AccessPointName,
		Method:          event.Method,
		Action:          string(event.Action),
		Result:          string(event.Result),
		Severity:        string(event.Severity),
		IsAnomaly:       event.IsAnomaly,
		RiskScore:       event.RiskScore,
		IPAddress:       event.IPAddress,
		UserAgent:       event.UserAgent,
		SessionID:       event.SessionID,
		Details:         datatypes.JSON(details),
		OccurredAt:      event.Timestamp.UTC(),
	}, nil
}

func (e ArchivedEvent) toModel() models.AccessEvent {
	var details models.EventDetails
	if len(e.Details) > 0 {
		// Rows written by older builds may carry unknown keys; they are ignored.
		_ = json.Unmarshal(e.Details, &details)
	}
	return models.AccessEvent{
		ID:              e.ID,
		UserID:          e.UserID,
		UserName:        e.UserName,
		AccessPointID:   e.AccessPointID,
		AccessPointName: e.AccessPointName,
		Method:          e.Method,
		Action:          models.AccessAction(e.Action),
		Timestamp:       e.OccurredAt,
		Result:          models.AccessResult(e.Result),
		Details:         details,
		IPAddress:       e.IPAddress,
		UserAgent:       e.UserAgent,
		SessionID:       e.SessionID,
		Severity:        models.Severity(e.Severity),
		IsAnomaly:       e.IsAnomaly,
		RiskScore:       e.RiskScore,
	}
}
