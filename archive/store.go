package archive

import (
	"gorm.io/gorm"

	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/ir/model"
)

// ArchivedModel is the GORM row backing one archived Model: the YAML
// Document blob alongside queryable metadata, so a SQL-backed archive of
// compiled Maps (spec §6 "Archive format", backend-neutral) can be listed
// and looked up by name without deserializing every row.
type ArchivedModel struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"uniqueIndex;not null"`
	SchemaVersion int    `gorm:"not null"`
	NodeCount     int    `gorm:"not null"`
	Document      string `gorm:"not null"` // YAML-encoded archive.Document
}

// SQLStore persists Models as rows in a SQLite database via GORM, the
// queryable counterpart to the plain EncodeYAML/DecodeYAML file codec.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens cfg's SQLite database and ensures the ArchivedModel
// table exists.
func NewSQLStore(cfg SQLiteConfig) (*SQLStore, error) {
	db, err := NewSQLite(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ArchivedModel{}); err != nil {
		return nil, errkind.Wrap(errkind.ArchiveMismatch, "", err)
	}
	return &SQLStore{db: db}, nil
}

// Save encodes m and upserts it under name.
func (s *SQLStore) Save(name string, m *model.Model) error {
	doc, err := Encode(m)
	if err != nil {
		return err
	}
	encoded, err := EncodeYAML(m)
	if err != nil {
		return err
	}
	row := ArchivedModel{
		Name:          name,
		SchemaVersion: doc.SchemaVersion,
		NodeCount:     len(doc.Nodes),
		Document:      string(encoded),
	}
	return s.db.Where(ArchivedModel{Name: name}).
		Assign(row).
		FirstOrCreate(&ArchivedModel{}).Error
}

// Load reconstructs the Model archived under name.
func (s *SQLStore) Load(name string) (*model.Model, error) {
	var row ArchivedModel
	if err := s.db.Where("name = ?", name).First(&row).Error; err != nil {
		return nil, errkind.Wrap(errkind.ArchiveMismatch, "", err)
	}
	return DecodeYAML([]byte(row.Document))
}

// List returns the names of every archived Model, most recently created
// first; re-saving an existing name updates its row in place, so it keeps
// its original position.
func (s *SQLStore) List() ([]string, error) {
	var rows []ArchivedModel
	if err := s.db.Order("id desc").Find(&rows).Error; err != nil {
		return nil, errkind.Wrap(errkind.ArchiveMismatch, "", err)
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names, nil
}

// Delete removes the archived Model under name, if any.
func (s *SQLStore) Delete(name string) error {
	return s.db.Where("name = ?", name).Delete(&ArchivedModel{}).Error
}
