package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studenthub/backend/internal/apperror"
	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
)

// Validation constants for onboarding input.
const (
	MaxCourseLength   = 120
	MaxInterestAreas  = 10
	MaxSemesters      = 20
	MaxInterestLength = 60
)

// UserService handles onboarding, the student dashboard, and the benefit
// redemption ledger.
type UserService struct {
	db     repository.UnitOfWork
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(db repository.UnitOfWork, logger *slog.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

// Dashboard returns the full user snapshot shown on the student dashboard.
func (s *UserService) Dashboard(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.db.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching dashboard for %s: %w", userID, err)
	}
	return user, nil
}

// ListStudents returns every registered student for the public roster.
func (s *UserService) ListStudents(ctx context.Context) ([]model.User, error) {
	users, err := s.db.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing students: %w", err)
	}
	return users, nil
}

// SaveOnboarding validates and persists the onboarding form, marking the
// account onboarding-complete.
func (s *UserService) SaveOnboarding(ctx context.Context, userID string, data model.Onboarding) error {
	data.Course = strings.TrimSpace(data.Course)
	if data.Course == "" {
		return apperror.ValidationFailed("course", "course is required")
	}
	if len(data.Course) > MaxCourseLength {
		return apperror.ValidationFailed("course",
			fmt.Sprintf("course must be %d characters or less", MaxCourseLength))
	}
	if data.TotalSemesters < 1 || data.TotalSemesters > MaxSemesters {
		return apperror.ValidationFailed("totalSemesters",
			fmt.Sprintf("total semesters must be between 1 and %d", MaxSemesters))
	}
	if data.CurrentSemester < 1 || data.CurrentSemester > data.TotalSemesters {
		return apperror.ValidationFailed("currentSemester",
			"current semester must be between 1 and the total number of semesters")
	}
	if len(data.InterestAreas) == 0 {
		return apperror.ValidationFailed("interestAreas", "at least one interest area is required")
	}
	if len(data.InterestAreas) > MaxInterestAreas {
		return apperror.ValidationFailed("interestAreas",
			fmt.Sprintf("at most %d interest areas are allowed", MaxInterestAreas))
	}
	for i, area := range data.InterestAreas {
		area = strings.TrimSpace(area)
		if area == "" || len(area) > MaxInterestLength {
			return apperror.ValidationFailed("interestAreas", "interest areas must be non-empty short labels")
		}
		data.InterestAreas[i] = area
	}

	if err := s.db.Users().SaveOnboarding(ctx, userID, data); err != nil {
		return fmt.Errorf("service/user: saving onboarding for %s: %w", userID, err)
	}

	s.logger.Info("onboarding saved",
		slog.String("userID", userID),
		slog.String("course", data.Course),
	)
	return nil
}

// RedeemBenefit toggles a benefit redemption and keeps the reward balance in
// sync with the ledger. Returns the user's new balance.
//
// THE LEDGER RULES (per product):
//   - redeem, no existing entry  → append entry, balance += monthly × months
//   - redeem, entry exists       → replace entry; balance reflects only the
//     latest terms (old contribution out, new contribution in)
//   - un-redeem, entry exists    → remove entry, balance -= its contribution
//   - un-redeem, no entry        → no-op
//
// The read-modify-write runs in one transaction, so concurrent redemption
// edits for the same user serialize on the row instead of clobbering each
// other. The platform-wide unlocked value is adjusted by the same net delta
// inside the same transaction.
func (s *UserService) RedeemBenefit(ctx context.Context, userID, productID string, isRedeemed bool, monthlyValue float64, monthsRemaining int) (float64, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return 0, apperror.ValidationFailed("productId", "product ID is required")
	}
	if isRedeemed && (monthlyValue < 0 || monthsRemaining < 0) {
		return 0, apperror.ValidationFailed("monthlyValue", "redemption terms must not be negative")
	}

	var newTotal float64
	err := s.db.InTx(ctx, func(stores repository.Stores) error {
		user, err := stores.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}

		ledger := user.RedeemedBenefits
		total := user.TotalEconomy

		existing := -1
		for i, b := range ledger {
			if b.ProductID == productID {
				existing = i
				break
			}
		}

		switch {
		case isRedeemed && existing == -1:
			entry := model.BenefitRedemption{ProductID: productID, MonthlyValue: monthlyValue, MonthsRemaining: monthsRemaining}
			ledger = append(ledger, entry)
			total += entry.Value()

		case isRedeemed:
			entry := model.BenefitRedemption{ProductID: productID, MonthlyValue: monthlyValue, MonthsRemaining: monthsRemaining}
			total -= ledger[existing].Value()
			total += entry.Value()
			ledger[existing] = entry

		case existing != -1:
			total -= ledger[existing].Value()
			ledger = append(ledger[:existing], ledger[existing+1:]...)

		default:
			// Un-redeeming a product that was never redeemed: nothing to do.
			newTotal = total
			return nil
		}

		if total < 0 {
			total = 0
		}

		if err := stores.Users().ReplaceBenefits(ctx, userID, ledger, total); err != nil {
			return err
		}
		if err := stores.Stats().AddUnlockedValue(ctx, total-user.TotalEconomy); err != nil {
			return err
		}
		newTotal = total
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("service/user: updating benefit %s for %s: %w", productID, userID, err)
	}

	s.logger.Info("benefit redemption updated",
		slog.String("userID", userID),
		slog.String("productID", productID),
		slog.Bool("redeemed", isRedeemed),
		slog.Float64("totalEconomy", newTotal),
	)
	return newTotal, nil
}

// SetConfettiSeen records the one-time celebration acknowledgement.
func (s *UserService) SetConfettiSeen(ctx context.Context, userID string, seen bool) error {
	if err := s.db.Users().SetConfettiSeen(ctx, userID, seen); err != nil {
		return fmt.Errorf("service/user: updating confetti flag for %s: %w", userID, err)
	}
	return nil
}
