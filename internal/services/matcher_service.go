package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"procurement-service/internal/cache"
	"procurement-service/internal/models"
	"procurement-service/internal/repository"
)

var (
	ErrNoRuleMatched   = errors.New("no active approval rule matches the document category and amount")
	ErrInvalidCategory = errors.New("unknown document category")
)

// MatchResult is the outcome of evaluating the approval matrix for a
// document
type MatchResult struct {
	Rule         *models.ApprovalRule `json:"rule"`
	AutoApproved bool                 `json:"autoApproved"`
}

// MatcherService resolves which approval rule governs a document. Rules
// are read through the Redis cache; the database is only hit on cache
// miss or when the cache is unavailable.
type MatcherService struct {
	ruleRepo  repository.RuleRepositoryInterface
	ruleCache *cache.RuleCache
	logger    *logrus.Entry
}

// NewMatcherService creates a new MatcherService
func NewMatcherService(ruleRepo repository.RuleRepositoryInterface, ruleCache *cache.RuleCache, logger *logrus.Logger) *MatcherService {
	if logger == nil {
		logger = logrus.New()
	}
	return &MatcherService{
		ruleRepo:  ruleRepo,
		ruleCache: ruleCache,
		logger:    logger.WithField("component", "matcher"),
	}
}

// MatchRule finds the approval rule governing a document of the given
// category and amount. Rules are evaluated in ascending min_amount
// order, so if overlapping bands exist in legacy data the lowest band
// wins deterministically. AutoApproved is set when the matched rule's
// threshold covers the amount.
func (s *MatcherService) MatchRule(ctx context.Context, tenantID string, category models.DocumentCategory, amount float64) (*MatchResult, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	if amount < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}

	rules, err := s.activeRules(ctx, tenantID, category)
	if err != nil {
		return nil, err
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.Contains(amount) {
			continue
		}

		autoApproved := rule.AutoApproveBelow != nil && amount < *rule.AutoApproveBelow
		s.logger.WithFields(logrus.Fields{
			"tenantId":     tenantID,
			"category":     category,
			"amount":       amount,
			"ruleId":       rule.ID,
			"autoApproved": autoApproved,
		}).Debug("Matched approval rule")

		return &MatchResult{Rule: rule, AutoApproved: autoApproved}, nil
	}

	return nil, ErrNoRuleMatched
}

// activeRules returns the active rules for a category, cache-through
func (s *MatcherService) activeRules(ctx context.Context, tenantID string, category models.DocumentCategory) ([]models.ApprovalRule, error) {
	if s.ruleCache != nil {
		cached, err := s.ruleCache.Get(ctx, tenantID, category)
		if err != nil {
			s.logger.WithError(err).Warn("Rule cache read failed, falling back to database")
		} else if cached != nil {
			return cached, nil
		}
	}

	rules, err := s.ruleRepo.FindActiveRules(ctx, tenantID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval rules: %w", err)
	}

	if s.ruleCache != nil {
		if err := s.ruleCache.Set(ctx, tenantID, category, rules); err != nil {
			s.logger.WithError(err).Warn("Rule cache write failed")
		}
	}

	return rules, nil
}
