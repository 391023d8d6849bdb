package seeders

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"procurement-service/internal/models"
)

// SeedDefaults creates or updates the system-tenant approval roles and
// a default approval matrix. Tenants without their own rules fall back
// to these defaults in provisioning flows.
func SeedDefaults(db *gorm.DB) error {
	roleIDs, err := seedRoles(db)
	if err != nil {
		return err
	}
	return seedRules(db, roleIDs)
}

func seedRoles(db *gorm.DB) (map[string]uuid.UUID, error) {
	roles := []models.ApprovalRole{
		{TenantID: "system", Code: "BUYER_LEAD", NameEn: "Buyer Lead", NameAr: "قائد المشتريات", HierarchyLevel: 2, IsActive: true},
		{TenantID: "system", Code: "FINANCE_MANAGER", NameEn: "Finance Manager", NameAr: "مدير المالية", HierarchyLevel: 4, IsActive: true},
		{TenantID: "system", Code: "PROCUREMENT_DIRECTOR", NameEn: "Procurement Director", NameAr: "مدير المشتريات التنفيذي", HierarchyLevel: 6, IsActive: true},
		{TenantID: "system", Code: "CFO", NameEn: "Chief Financial Officer", NameAr: "المدير المالي", HierarchyLevel: 8, IsActive: true},
		{TenantID: "system", Code: "CEO", NameEn: "Chief Executive Officer", NameAr: "الرئيس التنفيذي", HierarchyLevel: 10, IsActive: true},
	}

	ids := make(map[string]uuid.UUID, len(roles))
	for i := range roles {
		role := &roles[i]
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name_en", "name_ar", "hierarchy_level", "updated_at"}),
		}).Create(role)
		if result.Error != nil {
			log.Printf("Failed to seed role %s: %v", role.Code, result.Error)
			return nil, result.Error
		}

		// Re-read so upserted rows report the stored ID
		var stored models.ApprovalRole
		if err := db.Where("tenant_id = ? AND code = ?", "system", role.Code).First(&stored).Error; err != nil {
			return nil, err
		}
		ids[role.Code] = stored.ID
		log.Printf("Seeded role: %s", role.Code)
	}

	return ids, nil
}

func seedRules(db *gorm.DB, roleIDs map[string]uuid.UUID) error {
	f := func(v float64) *float64 { return &v }

	rules := []models.ApprovalRule{
		{
			TenantID:         "system",
			Category:         models.CategoryPurchaseRequest,
			NameEn:           "Purchase requests up to 10,000",
			NameAr:           "طلبات الشراء حتى ١٠٠٠٠",
			MinAmount:        0,
			MaxAmount:        f(10000),
			AutoApproveBelow: f(5000),
			Version:          1,
			IsActive:         true,
			Approvers: []models.RuleApprover{
				{ApprovalRoleID: roleIDs["BUYER_LEAD"], SequenceOrder: 1, IsMandatory: true, CanDelegate: true},
				{ApprovalRoleID: roleIDs["FINANCE_MANAGER"], SequenceOrder: 2, IsMandatory: true},
			},
		},
		{
			TenantID:  "system",
			Category:  models.CategoryPurchaseRequest,
			NameEn:    "Purchase requests 10,000 to 100,000",
			NameAr:    "طلبات الشراء من ١٠٠٠٠ إلى ١٠٠٠٠٠",
			MinAmount: 10000,
			MaxAmount: f(100000),
			Version:   1,
			IsActive:  true,
			Approvers: []models.RuleApprover{
				{ApprovalRoleID: roleIDs["BUYER_LEAD"], SequenceOrder: 1, IsMandatory: true, CanDelegate: true},
				{ApprovalRoleID: roleIDs["FINANCE_MANAGER"], SequenceOrder: 2, IsMandatory: true},
				{ApprovalRoleID: roleIDs["PROCUREMENT_DIRECTOR"], SequenceOrder: 3, IsMandatory: true},
			},
		},
		{
			TenantID:  "system",
			Category:  models.CategoryPurchaseRequest,
			NameEn:    "Purchase requests above 100,000",
			NameAr:    "طلبات الشراء فوق ١٠٠٠٠٠",
			MinAmount: 100000,
			Version:   1,
			IsActive:  true,
			Approvers: []models.RuleApprover{
				{ApprovalRoleID: roleIDs["PROCUREMENT_DIRECTOR"], SequenceOrder: 1, IsMandatory: true},
				{ApprovalRoleID: roleIDs["CFO"], SequenceOrder: 2, IsMandatory: true},
				{ApprovalRoleID: roleIDs["CEO"], SequenceOrder: 3, IsMandatory: true},
			},
		},
		{
			TenantID:         "system",
			Category:         models.CategoryPayments,
			NameEn:           "Payments up to 50,000",
			NameAr:           "المدفوعات حتى ٥٠٠٠٠",
			MinAmount:        0,
			MaxAmount:        f(50000),
			AutoApproveBelow: f(1000),
			Version:          1,
			IsActive:         true,
			Approvers: []models.RuleApprover{
				{ApprovalRoleID: roleIDs["FINANCE_MANAGER"], SequenceOrder: 1, IsMandatory: true, CanDelegate: true},
			},
		},
		{
			TenantID:  "system",
			Category:  models.CategoryPayments,
			NameEn:    "Payments above 50,000",
			NameAr:    "المدفوعات فوق ٥٠٠٠٠",
			MinAmount: 50000,
			Version:   1,
			IsActive:  true,
			Approvers: []models.RuleApprover{
				{ApprovalRoleID: roleIDs["FINANCE_MANAGER"], SequenceOrder: 1, IsMandatory: true},
				{ApprovalRoleID: roleIDs["CFO"], SequenceOrder: 2, IsMandatory: true},
			},
		},
		{
			TenantID:  "system",
			Category:  models.CategoryCapex,
			NameEn:    "Capital expenditure",
			NameAr:    "النفقات الرأسمالية",
			MinAmount: 0,
			Version:   1,
			IsActive:  true,
			Approvers: []models.RuleApprover{
				{ApprovalRoleID: roleIDs["PROCUREMENT_DIRECTOR"], SequenceOrder: 1, IsMandatory: true},
				{ApprovalRoleID: roleIDs["CFO"], SequenceOrder: 2, IsMandatory: true},
			},
		},
	}

	for i := range rules {
		rule := &rules[i]

		var existing models.ApprovalRule
		err := db.Where("tenant_id = ? AND category = ? AND name_en = ?",
			rule.TenantID, rule.Category, rule.NameEn).First(&existing).Error
		if err == nil {
			continue // seeded before, do not overwrite operator edits
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if result := db.Create(rule); result.Error != nil {
			log.Printf("Failed to seed rule %s: %v", rule.NameEn, result.Error)
			return result.Error
		}
		log.Printf("Seeded rule: %s (%s)", rule.NameEn, rule.Category)
	}

	return nil
}
