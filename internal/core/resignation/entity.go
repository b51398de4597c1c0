package resignation

import "time"

// Status は退職申請の状態を表します。
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// IsActive は申請が有効 (Pending または Approved) かどうかを返します。
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusApproved
}

// Role は操作主体のロールです。
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleHR       Role = "HR"
)

// DefaultCountryCode は居住国が不明な場合に用いる国コードです。
const DefaultCountryCode = "IND"

// Actor は認証済みの操作主体です。
type Actor struct {
	ID          string
	Username    string
	Role        Role
	CountryCode string
}

// Resignation は退職申請エンティティです。
type Resignation struct {
	ID                     string
	EmployeeID             string
	EmployeeUsername       string
	SubmissionDate         time.Time
	IntendedLastWorkingDay time.Time
	Reason                 string
	Status                 Status
	ExitDate               *time.Time
	ExitInterviewCompleted bool
	ExitInterviewResponses *ExitInterviewResponses
}

// ExitInterviewResponses は退職面談の回答です。
type ExitInterviewResponses struct {
	CultureRating      string
	ManagementFeedback string
	Suggestions        string
}

// Clone は Resignation の深いコピーを返します。
func (r *Resignation) Clone() *Resignation {
	if r == nil {
		return nil
	}
	clone := *r
	clone.ExitDate = cloneTime(r.ExitDate)
	if r.ExitInterviewResponses != nil {
		responses := *r.ExitInterviewResponses
		clone.ExitInterviewResponses = &responses
	}
	return &clone
}
