package models

import "time"

// ParticipantStatus is the draw eligibility of a participant.
type ParticipantStatus string

const (
	ParticipantAvailable ParticipantStatus = "AVAILABLE"
	ParticipantWon       ParticipantStatus = "WON"
)

// PrizeStatus is the lifecycle of a prize.
type PrizeStatus string

const (
	PrizePending   PrizeStatus = "PENDING"
	PrizeCompleted PrizeStatus = "COMPLETED"
)

// RigStatus is the lifecycle of a rig directive.
type RigStatus string

const (
	RigPending   RigStatus = "PENDING"
	RigUsed      RigStatus = "USED"
	RigCancelled RigStatus = "CANCELLED"
)

// DrawAction tells how a history entry's winner was selected.
type DrawAction string

const (
	ActionNormal DrawAction = "NORMAL"
	ActionRigged DrawAction = "RIGGED"
)

// Participant represents a person on the event roster.
// The Won* fields are only set while Status is WON.
type Participant struct {
	ID           string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string            `json:"name" gorm:"type:varchar(50);not null;uniqueIndex"`
	EmployeeID   string            `json:"employeeId" gorm:"type:varchar(20)"`
	Department   string            `json:"department" gorm:"type:varchar(50)"`
	Status       ParticipantStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	WonPrizeID   string            `json:"wonPrizeId,omitempty" gorm:"type:varchar(36)"`
	WonPrizeName string            `json:"wonPrizeName,omitempty" gorm:"type:varchar(50)"`
	WonTime      *time.Time        `json:"wonTime,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// ClearWin puts the participant back into the available pool.
func (p *Participant) ClearWin() {
	p.Status = ParticipantAvailable
	p.WonPrizeID = ""
	p.WonPrizeName = ""
	p.WonTime = nil
}

// Prize is one ranked prize category. A smaller Level is more prestigious.
type Prize struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string      `json:"name" gorm:"type:varchar(50);not null"`
	Level       int         `json:"level" gorm:"not null;uniqueIndex"`
	Count       int         `json:"count" gorm:"not null;default:1"`
	Description string      `json:"description" gorm:"type:varchar(200)"`
	Status      PrizeStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	DrawnCount  int         `json:"drawnCount" gorm:"not null;default:0"`
	DrawTime    *time.Time  `json:"drawTime,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Remaining returns how many winner slots are still open.
func (p *Prize) Remaining() int {
	return p.Count - p.DrawnCount
}

// RigDirective promises that a participant wins a prize on its next draw.
// Participant and prize fields are snapshots taken when the directive is created.
type RigDirective struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ParticipantID   string     `json:"participantId" gorm:"type:varchar(36);not null;index"`
	ParticipantName string     `json:"participantName" gorm:"type:varchar(50);not null"`
	PrizeID         string     `json:"prizeId" gorm:"type:varchar(36);not null;index"`
	PrizeName       string     `json:"prizeName" gorm:"type:varchar(50);not null"`
	PrizeLevel      int        `json:"prizeLevel" gorm:"not null"`
	Status          RigStatus  `json:"status" gorm:"type:varchar(20);not null;index"`
	UsedTime        *time.Time `json:"usedTime,omitempty"`
	Operator        string     `json:"operator" gorm:"type:varchar(50)"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// HistoryEntry records one participant winning one prize.
// Only the cancellation fields change after creation.
type HistoryEntry struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PrizeID         string     `json:"prizeId" gorm:"type:varchar(36);not null;index"`
	PrizeName       string     `json:"prizeName" gorm:"type:varchar(50);not null"`
	PrizeLevel      int        `json:"prizeLevel" gorm:"not null"`
	ParticipantID   string     `json:"participantId" gorm:"type:varchar(36);not null;index"`
	ParticipantName string     `json:"participantName" gorm:"type:varchar(50);not null"`
	Action          DrawAction `json:"action" gorm:"type:varchar(20);not null"`
	Cancelled       bool       `json:"isCancelled" gorm:"not null;default:false"`
	CancelledTime   *time.Time `json:"cancelledTime,omitempty"`
	Operator        string     `json:"operator" gorm:"type:varchar(50)"`
	Remark          string     `json:"remark,omitempty" gorm:"type:varchar(200)"`
	DrawTime        time.Time  `json:"drawTime" gorm:"not null;index"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Winner is one selected participant in a DrawResult.
type Winner struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId"`
	Department string `json:"department"`
	IsRigged   bool   `json:"isRigged"`
}

// DrawResult stores the outcome of a single draw. Rigged winners come first.
type DrawResult struct {
	PrizeID    string    `json:"prizeId"`
	PrizeName  string    `json:"prizeName"`
	PrizeLevel int       `json:"prizeLevel"`
	DrawTime   time.Time `json:"drawTime"`
	Winners    []Winner  `json:"winners"`
}
