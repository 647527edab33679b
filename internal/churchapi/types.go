// Package churchapi provides a client for the church management platform API.
package churchapi

import "time"

const (
	// PaymentMethodACH represents an ACH bank transfer.
	PaymentMethodACH PaymentMethod = "ach"

	// PaymentMethodCard represents a credit or debit card payment.
	PaymentMethodCard PaymentMethod = "card"

	// PaymentMethodCash represents a cash gift.
	PaymentMethodCash PaymentMethod = "cash"

	// PaymentMethodCheck represents a cheque.
	PaymentMethodCheck PaymentMethod = "check"

	// PaymentMethodOnline represents a gift made through the online giving page.
	PaymentMethodOnline PaymentMethod = "online"
)

// Donation represents a donation record.
type Donation struct {
	// Amount is the donation amount as a decimal string.
	Amount string `json:"amount"`

	// CreatedAt is when the donation was recorded.
	CreatedAt time.Time `json:"createdAt"`

	// DonorID is the donor's person ID. Empty for anonymous gifts.
	DonorID string `json:"donorId"`

	// Fund is the fund designation.
	Fund string `json:"fund"`

	// ID is the unique donation identifier.
	ID string `json:"id"`

	// IsRecurring indicates a scheduled gift.
	IsRecurring bool `json:"isRecurring"`

	// PaymentMethod is the method used for payment.
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// GivingSummary is a donor's lifetime giving as reported by the platform.
type GivingSummary struct {
	// DonorID is the donor's person ID.
	DonorID string `json:"donorId"`

	// FirstDonationDate is the date of the first gift.
	FirstDonationDate time.Time `json:"firstDonationDate"`

	// LastDonationDate is the date of the most recent gift.
	LastDonationDate time.Time `json:"lastDonationDate"`

	// TotalAmount is the lifetime total.
	TotalAmount float64 `json:"totalAmount"`

	// TotalDonations is the lifetime gift count.
	TotalDonations int `json:"totalDonations"`
}

// PaymentMethod represents a platform payment method.
type PaymentMethod string

// Person represents a person record.
type Person struct {
	// BirthDate is the date of birth as YYYY-MM-DD, if known.
	BirthDate string `json:"birthDate"`

	// Email is the primary email address.
	Email string `json:"email"`

	// FirstName is the person's first name.
	FirstName string `json:"firstName"`

	// ID is the unique person identifier.
	ID string `json:"id"`

	// JoinDate is the membership date as YYYY-MM-DD, if a member.
	JoinDate string `json:"joinDate"`

	// LastName is the person's last name.
	LastName string `json:"lastName"`

	// Phone is the mobile number.
	Phone string `json:"phone"`

	// Status is the membership status.
	Status string `json:"status"`
}

// page is one page of a cursor-paginated list response.
type page[T any] struct {
	// Data contains the items of this page.
	Data []T `json:"data"`

	// HasMore indicates if there are more results.
	HasMore bool `json:"hasMore"`

	// NextCursor is the pagination cursor for the next page.
	NextCursor string `json:"nextCursor"`
}

// taskRequest is the body of a task creation request.
type taskRequest struct {
	AssignedTo  string `json:"assignedTo,omitempty"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate"`
	PersonID    string `json:"personId"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
}
