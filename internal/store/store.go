// Package store persists cluster records and encrypted credential rows.
//
// The relational schema is deliberately simple: one row per cluster, one row
// per (organization, provider) credential set. All mutation of cluster rows
// goes through the provisioner; writes are last-writer-wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultOrgID scopes resources created without an explicit organization.
const DefaultOrgID = "default"

// ClusterStatus is the lifecycle state of a cluster record.
type ClusterStatus string

const (
	// StatusPending is set when the record is created, before the
	// asynchronous provisioning attempt has settled.
	StatusPending ClusterStatus = "pending"
	// StatusActive means provisioning succeeded.
	StatusActive ClusterStatus = "active"
	// StatusError means provisioning failed; the config blob carries the cause.
	StatusError ClusterStatus = "error"
)

// Cluster is the persisted representation of a compute cluster.
type Cluster struct {
	ID        string        `gorm:"primaryKey;type:varchar(36)"`
	Name      string        `gorm:"size:128;not null"`
	Provider  string        `gorm:"size:32;not null;index"`
	Region    string        `gorm:"size:64"`
	NodeCount int           `gorm:"not null;default:1"`
	Status    ClusterStatus `gorm:"size:16;not null;default:'pending';index"`
	// Config is an opaque provider-specific JSON blob. After a successful
	// deploy it carries the provisioning result; after a failed one, the
	// error message.
	Config    string    `gorm:"type:text"`
	OrgID     string    `gorm:"size:64;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Credential is one encrypted credential set for an (organization, provider)
// pair. The Ciphertext column never holds plaintext; encryption happens in
// the vault before the row reaches this package.
type Credential struct {
	ID          uint   `gorm:"primaryKey"`
	OrgID       string `gorm:"size:64;not null;index:idx_cred_org_provider"`
	Provider    string `gorm:"size:32;not null;index:idx_cred_org_provider"`
	Ciphertext  string `gorm:"type:text;not null"`
	Identity    string `gorm:"size:256"`
	DisplayName string `gorm:"size:256"`
	CreatedAt   time.Time
}

// ErrRecordNotFound is returned when a lookup matches no row.
var ErrRecordNotFound = errors.New("record not found")

// Store is the persistence boundary consumed by the vault and the provisioner.
type Store interface {
	GetCluster(ctx context.Context, id string) (*Cluster, error)
	InsertCluster(ctx context.Context, c *Cluster) error
	UpdateClusterStatus(ctx context.Context, id string, status ClusterStatus, config string) error
	DeleteCluster(ctx context.Context, id string) error
	// ListClusters returns clusters for one organization, or all clusters
	// when orgID is empty.
	ListClusters(ctx context.Context, orgID string) ([]Cluster, error)

	GetCredential(ctx context.Context, orgID, provider string) (*Credential, error)
	// SaveCredential replaces any prior row for the (orgID, provider) pair.
	SaveCredential(ctx context.Context, c *Credential) error
	DeleteCredential(ctx context.Context, orgID, provider string) error
}

// GormStore implements Store on top of a gorm DB handle.
type GormStore struct {
	db *gorm.DB
}

// New wraps an open gorm DB and migrates the schema.
func New(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Cluster{}, &Credential{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// GetCluster loads one cluster row by id.
func (s *GormStore) GetCluster(ctx context.Context, id string) (*Cluster, error) {
	var c Cluster
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cluster %s: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to load cluster %s: %w", id, err)
	}
	return &c, nil
}

// InsertCluster persists a new cluster row.
func (s *GormStore) InsertCluster(ctx context.Context, c *Cluster) error {
	if c.OrgID == "" {
		c.OrgID = DefaultOrgID
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to insert cluster %s: %w", c.ID, err)
	}
	return nil
}

// UpdateClusterStatus flips a cluster's status and replaces its config blob.
func (s *GormStore) UpdateClusterStatus(ctx context.Context, id string, status ClusterStatus, config string) error {
	res := s.db.WithContext(ctx).Model(&Cluster{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "config": config})
	if res.Error != nil {
		return fmt.Errorf("failed to update cluster %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cluster %s: %w", id, ErrRecordNotFound)
	}
	return nil
}

// DeleteCluster removes a cluster row. Deleting a missing row is not an error.
func (s *GormStore) DeleteCluster(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Cluster{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", id, err)
	}
	return nil
}

// ListClusters returns clusters scoped to an organization, newest first.
func (s *GormStore) ListClusters(ctx context.Context, orgID string) ([]Cluster, error) {
	var clusters []Cluster
	q := s.db.WithContext(ctx).Order("created_at desc")
	if orgID != "" {
		q = q.Where("org_id = ?", orgID)
	}
	if err := q.Find(&clusters).Error; err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	return clusters, nil
}

// GetCredential loads the credential row for an (organization, provider) pair.
func (s *GormStore) GetCredential(ctx context.Context, orgID, provider string) (*Credential, error) {
	var c Credential
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND provider = ?", orgID, provider).
		Order("created_at desc").
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("credentials for %s/%s: %w", orgID, provider, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to load credentials for %s/%s: %w", orgID, provider, err)
	}
	return &c, nil
}

// SaveCredential replaces any prior row for the (orgID, provider) pair, so at
// most one active credential set exists per pair.
func (s *GormStore) SaveCredential(ctx context.Context, c *Credential) error {
	if c.OrgID == "" {
		c.OrgID = DefaultOrgID
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("org_id = ? AND provider = ?", c.OrgID, c.Provider).
			Delete(&Credential{}).Error; err != nil {
			return fmt.Errorf("failed to clear prior credentials: %w", err)
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to insert credentials: %w", err)
		}
		return nil
	})
}

// DeleteCredential removes the stored row for an (organization, provider) pair.
func (s *GormStore) DeleteCredential(ctx context.Context, orgID, provider string) error {
	res := s.db.WithContext(ctx).
		Where("org_id = ? AND provider = ?", orgID, provider).
		Delete(&Credential{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete credentials for %s/%s: %w", orgID, provider, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("credentials for %s/%s: %w", orgID, provider, ErrRecordNotFound)
	}
	return nil
}
