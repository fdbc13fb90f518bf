package entity

import (
	"errors"
	"testing"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to ItemStatus
		allowed  bool
	}{
		{ItemStatusAvailable, ItemStatusPending, true},
		{ItemStatusAvailable, ItemStatusSold, true},
		{ItemStatusPending, ItemStatusSold, true},
		{ItemStatusPending, ItemStatusAvailable, false},
		{ItemStatusSold, ItemStatusAvailable, false},
		{ItemStatusSold, ItemStatusPending, false},
		{ItemStatusSold, ItemStatusSold, false},
		{ItemStatusAvailable, ItemStatusAvailable, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewItem(t *testing.T) {
	item, err := NewItem("seller1", " Lamp ", "desk lamp", CategoryFurniture, decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	assert.Equal(t, "Lamp", item.Name)
	assert.Equal(t, ItemStatusAvailable, item.Status)
	assert.Equal(t, 1, item.Version)
	assert.True(t, item.IsOwnedBy("seller1"))
	assert.False(t, item.IsOwnedBy(""))

	_, err = NewItem("seller1", "Lamp", "", CategoryFurniture, decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = NewItem("seller1", "Lamp", "", CategoryFurniture, decimal.NewFromInt(-3))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = NewItem("seller1", "Lamp", "", Category("Cars"), decimal.NewFromInt(3))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = NewItem("seller1", "   ", "", CategoryBooks, decimal.NewFromInt(3))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestEmailValidator(t *testing.T) {
	v := NewEmailValidator("")

	assert.NoError(t, v.Validate("1234567A@student.gla.ac.uk"))
	assert.ErrorIs(t, v.Validate("abc@student.gla.ac.uk"), domain.ErrValidation)
	assert.ErrorIs(t, v.Validate("1234567a@student.gla.ac.uk"), domain.ErrValidation)
	assert.ErrorIs(t, v.Validate("12345678A@student.gla.ac.uk"), domain.ErrValidation)
	assert.ErrorIs(t, v.Validate("1234567A@studentXglaXacXuk"), domain.ErrValidation)
	assert.ErrorIs(t, v.Validate("1234567A@student.gla.ac.uk.evil.com"), domain.ErrValidation)

	custom := NewEmailValidator("uni.example.edu")
	assert.NoError(t, custom.Validate("7654321Z@uni.example.edu"))
	assert.Error(t, custom.Validate("7654321Z@student.gla.ac.uk"))
}

func TestValidateUsernameAndPassword(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice99"))
	assert.ErrorIs(t, ValidateUsername("alice_99"), domain.ErrValidation)
	assert.ErrorIs(t, ValidateUsername(""), domain.ErrValidation)

	assert.NoError(t, ValidatePassword("longenough"))
	assert.ErrorIs(t, ValidatePassword("short"), domain.ErrValidation)
}

func TestUser_CanModerate(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.CanModerate())
	assert.False(t, (&User{Role: RoleCustomer}).CanModerate())
	assert.True(t, (&User{Role: RoleStaff}).CanModerate())
	assert.True(t, (&User{Role: RoleAdmin}).CanModerate())
}

func TestUser_CanAfford(t *testing.T) {
	u := &User{Balance: decimal.RequireFromString("50.00")}
	assert.False(t, u.CanAfford(decimal.RequireFromString("75.00")))
	assert.True(t, u.CanAfford(decimal.RequireFromString("50.00")))
}

func TestTransaction_PartyOf(t *testing.T) {
	tx := NewPendingTransaction("buyer", "seller", "item", decimal.NewFromInt(10))
	assert.Equal(t, PartyBuyer, tx.PartyOf("buyer"))
	assert.Equal(t, PartySeller, tx.PartyOf("seller"))
	assert.Equal(t, PartyNone, tx.PartyOf("stranger"))
	assert.Equal(t, PartyNone, tx.PartyOf(""))
	assert.False(t, tx.IsFullyConfirmed())
	assert.Nil(t, tx.DateCompleted)

	tx.BuyerConfirmation = true
	assert.False(t, tx.IsFullyConfirmed())
	tx.SellerConfirmation = true
	assert.True(t, tx.IsFullyConfirmed())
}

func TestNewCompletedTransaction(t *testing.T) {
	tx := NewCompletedTransaction("b", "s", "i", decimal.NewFromInt(30), SourceOffer, "")
	assert.Equal(t, TransactionStatusSold, tx.Status)
	assert.True(t, tx.IsFullyConfirmed())
	require.NotNil(t, tx.DateCompleted)
	assert.Equal(t, tx.DateInitiated, *tx.DateCompleted)
}

func TestNewOffer(t *testing.T) {
	offer, err := NewOffer("b", "i", decimal.RequireFromString("30.00"))
	require.NoError(t, err)
	assert.Equal(t, OfferStatusPending, offer.Status)
	assert.False(t, offer.IsResolved())

	offer.Status = OfferStatusRejected
	assert.True(t, offer.IsResolved())

	_, err = NewOffer("b", "i", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage("a", "b", "hello")
	require.NoError(t, err)
	assert.False(t, msg.IsRead)

	_, err = NewMessage("a", "b", "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewMessage("a", "a", "hi me")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReportPolicy_ValidateDescription(t *testing.T) {
	p := DefaultReportPolicy()

	assert.NoError(t, p.ValidateDescription(""))
	assert.NoError(t, p.ValidateDescription("Item arrived broken and unusable"))
	assert.ErrorIs(t, p.ValidateDescription("too short"), domain.ErrValidation)
	assert.ErrorIs(t, p.ValidateDescription("This listing is SPAM, please remove"), domain.ErrValidation)
	assert.ErrorIs(t, p.ValidateDescription("looks like a Fake watch to me"), domain.ErrValidation)
	assert.ErrorIs(t, p.ValidateDescription("contested listing contents"), domain.ErrValidation)
}

func TestNewReport(t *testing.T) {
	report, err := NewReport("item", "user", "Counterfeit", "", DefaultReportPolicy())
	require.NoError(t, err)
	assert.Equal(t, ReportStatusPending, report.Status)

	_, err = NewReport("item", "user", "  ", "", DefaultReportPolicy())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReportStatus_Transitions(t *testing.T) {
	assert.True(t, ReportStatusPending.CanTransitionTo(ReportStatusReviewed))
	assert.True(t, ReportStatusPending.CanTransitionTo(ReportStatusResolved))
	assert.True(t, ReportStatusReviewed.CanTransitionTo(ReportStatusResolved))
	assert.False(t, ReportStatusResolved.CanTransitionTo(ReportStatusPending))
	assert.False(t, ReportStatus("Closed").IsValid())
}

func TestRatings(t *testing.T) {
	for _, rating := range []int{1, 3, 5} {
		_, err := NewReview("u", "i", rating, "ok")
		assert.NoError(t, err)
	}
	for _, rating := range []int{0, 6, -1} {
		_, err := NewReview("u", "i", rating, "ok")
		assert.ErrorIs(t, err, domain.ErrValidation)
	}

	_, err := NewUserRating("u", "u", 5, "me")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewUserRating("u", "v", 4, "good seller")
	assert.NoError(t, err)
}

func TestCart_AddIncrementsQuantity(t *testing.T) {
	cart := NewCart("user1")
	require.NoError(t, cart.Add("item1"))
	require.NoError(t, cart.Add("item1"))
	require.NoError(t, cart.Add("item2"))

	require.Len(t, cart.Lines, 2)
	line, _ := cart.Line("item1")
	require.NotNil(t, line)
	assert.Equal(t, 2, line.Quantity)

	assert.Error(t, cart.Add(""))

	assert.True(t, cart.Remove("item1"))
	assert.False(t, cart.Remove("item1"))
	assert.Len(t, cart.Lines, 1)

	cart.Clear()
	assert.Empty(t, cart.Lines)
}
