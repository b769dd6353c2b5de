package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/core/common/validation"
	documentDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/document"
	"github.com/frahmantamala/policy-register/internal/core/events"
	"github.com/frahmantamala/policy-register/internal/storage"
	"github.com/frahmantamala/policy-register/internal/taxonomy"
	"github.com/google/uuid"
)

// Query restricts a read to a visibility scope and, optionally, a document type.
type Query struct {
	Scope        access.Scope
	DocumentType string
}

type ListFilter struct {
	Query
	Search     string
	Status     string
	CategoryID string
}

type RepositoryAPI interface {
	// Transaction runs fn against a repository bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx RepositoryAPI) error) error
	// NextSequence increments and returns the counter of (categoryID, year).
	NextSequence(ctx context.Context, categoryID string, year int) (int, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	Create(ctx context.Context, doc *documentDatamodel.Document, first *documentDatamodel.Version) error
	// GetByID returns nil when the record is absent or outside q.
	GetByID(ctx context.Context, id string, q Query) (*documentDatamodel.Document, error)
	List(ctx context.Context, filter ListFilter) ([]*documentDatamodel.Document, error)
	Versions(ctx context.Context, documentIDs []string) (map[string][]*documentDatamodel.Version, error)
	Grants(ctx context.Context, documentIDs []string) (map[string][]string, error)
	Update(ctx context.Context, doc *documentDatamodel.Document) error
	ReplaceGrants(ctx context.Context, documentID string, groupIDs []string) error
	// AppendVersion inserts v and moves the document to v's version, guarded by
	// expectedVersion. A stale guard yields internal.ErrVersionConflict.
	AppendVersion(ctx context.Context, doc *documentDatamodel.Document, expectedVersion int, v *documentDatamodel.Version) error
}

// TermResolver is satisfied by the taxonomy service.
type TermResolver interface {
	Resolve(ctx context.Context, id string) (*taxonomy.Term, error)
}

// Collection is the slice of the register one HTTP surface addresses.
type Collection struct {
	Name         string
	DocumentType string
	NotFound     *internal.AppError
}

var (
	PolicyCollection = Collection{
		Name:         "policy",
		DocumentType: TypePolicy,
		NotFound:     internal.NewNotFoundError("Policy not found", internal.ErrCodeDocumentNotFound),
	}
	DocumentCollection = Collection{
		Name:     "document",
		NotFound: internal.ErrDocumentNotFound,
	}
)

type Options struct {
	PolicyExtensions   []string
	DocumentExtensions []string
}

type Dependencies struct {
	Repo        RepositoryAPI
	Categories  TermResolver
	PolicyTypes TermResolver
	Blobs       storage.Blob
	Events      events.Publisher
}

type Service struct {
	collection Collection
	repo       RepositoryAPI
	categories TermResolver
	types      TermResolver
	blobs      storage.Blob
	events     events.Publisher
	opts       Options
	logger     *slog.Logger
}

func NewService(collection Collection, deps Dependencies, opts Options, logger *slog.Logger) *Service {
	return &Service{
		collection: collection,
		repo:       deps.Repo,
		categories: deps.Categories,
		types:      deps.PolicyTypes,
		blobs:      deps.Blobs,
		events:     deps.Events,
		opts:       opts,
		logger:     logger.With("collection", collection.Name),
	}
}

func (s *Service) Collection() Collection {
	return s.collection
}

// Create numbers, stores and records a new document at version 1.
func (s *Service) Create(ctx context.Context, dto CreateDocumentDTO, upload Upload) (*Document, error) {
	if s.collection.DocumentType != "" {
		dto.DocumentType = s.collection.DocumentType
	}
	if dto.DocumentType == "" {
		dto.DocumentType = TypeDocument
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ext, err := CheckExtension(upload.FileName, s.extensionsFor(dto.DocumentType))
	if err != nil {
		return nil, err
	}
	dateIssued, err := ParseDateIssued(dto.DateIssued)
	if err != nil {
		return nil, err
	}

	category, err := s.categories.Resolve(ctx, dto.CategoryID)
	if err != nil {
		return nil, err
	}
	typeCode := TypeCode(dto.DocumentType)
	var policyTypeID *string
	if id := strings.TrimSpace(dto.PolicyTypeID); id != "" {
		pt, err := s.types.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		typeCode = pt.Code
		policyTypeID = &pt.ID
	}

	manualNumber := strings.TrimSpace(dto.PolicyNumber)
	if manualNumber != "" {
		if err := s.ensureNumberFree(ctx, manualNumber); err != nil {
			return nil, err
		}
	}

	_, actor := internal.ActorFromContext(ctx)
	now := time.Now().UTC()
	summary := strings.TrimSpace(dto.ChangeSummary)
	if summary == "" {
		summary = DefaultInitialSummary
	}
	visible := true
	if dto.IsVisibleToUsers != nil {
		visible = *dto.IsVisibleToUsers
	}

	doc := &Document{
		ID:               uuid.NewString(),
		Title:            strings.TrimSpace(dto.Title),
		DocumentType:     dto.DocumentType,
		CategoryID:       category.ID,
		PolicyTypeID:     policyTypeID,
		DateIssued:       dateIssued.UTC(),
		Version:          1,
		Status:           access.StatusActive,
		OwnerDepartment:  strings.TrimSpace(dto.OwnerDepartment),
		FileName:         upload.FileName,
		IsVisibleToUsers: visible,
		VisibleToGroups:  []string{},
		Description:      dto.Description,
		Tags:             normalizeTags(dto.Tags),
		CreatedBy:        actor,
		CreatedAt:        now,
		ModifiedBy:       actor,
		ModifiedAt:       now,
	}

	err = s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		number := manualNumber
		if number == "" {
			seq, err := tx.NextSequence(ctx, category.ID, dateIssued.Year())
			if err != nil {
				return fmt.Errorf("allocate sequence: %w", err)
			}
			number = FormatNumber(category.Code, typeCode, seq, dateIssued.Year())
		}
		doc.DocumentNumber = number
		if doc.DocumentType == TypePolicy {
			doc.PolicyNumber = number
		}

		key := s.blobKey(doc, 1, upload.FileName, ext)
		checksum, size, err := s.store(ctx, key, upload)
		if err != nil {
			return err
		}
		doc.BlobKey = key
		doc.FileURL = FileURL(key)

		first := Version{
			VersionNumber: 1,
			UploadDate:    now,
			UploadedBy:    actor,
			ChangeSummary: summary,
			FileURL:       doc.FileURL,
			FileName:      upload.FileName,
			Checksum:      checksum,
			Size:          size,
			BlobKey:       key,
		}
		doc.VersionHistory = []Version{first}
		return tx.Create(ctx, ToDataModel(doc), VersionToDataModel(doc.ID, uuid.NewString(), first))
	})
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to create document", "title", doc.Title, "error", err)
		return nil, internal.NewInternalError(fmt.Sprintf("failed to create %s", s.collection.Name), err)
	}

	s.logger.Info("document created", "id", doc.ID, "number", doc.DocumentNumber, "actor", actor)
	s.publish(ctx, events.DocumentCreated, doc, map[string]interface{}{
		"title":         doc.Title,
		"document_type": doc.DocumentType,
	})
	return doc, nil
}

// List applies the caller's visibility scope plus the optional filters.
func (s *Service) List(ctx context.Context, q ListQuery) ([]*Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	docType := q.DocumentType
	if s.collection.DocumentType != "" {
		if docType != "" && docType != s.collection.DocumentType {
			return []*Document{}, nil
		}
		docType = s.collection.DocumentType
	}
	if q.CategoryID != "" && !validation.IsID(q.CategoryID) {
		return []*Document{}, nil
	}

	rows, err := s.repo.List(ctx, ListFilter{
		Query:      Query{Scope: s.scopeFor(ctx, q.ReadOptions), DocumentType: docType},
		Search:     strings.TrimSpace(q.Search),
		Status:     q.Status,
		CategoryID: q.CategoryID,
	})
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		return nil, internal.NewInternalError(fmt.Sprintf("failed to list %s records", s.collection.Name), err)
	}
	return s.assemble(ctx, rows)
}

// Get returns the document if the caller's scope admits it; otherwise NotFound.
func (s *Service) Get(ctx context.Context, id string, opts ReadOptions) (*Document, error) {
	return s.find(ctx, id, s.scopeFor(ctx, opts))
}

func (s *Service) Versions(ctx context.Context, id string, opts ReadOptions) ([]Version, error) {
	doc, err := s.Get(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	return doc.VersionHistory, nil
}

// Open resolves the document under the caller's scope and opens its current blob.
func (s *Service) Open(ctx context.Context, id string, opts ReadOptions) (*Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id, opts)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, doc.BlobKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("document blob missing", "id", doc.ID, "key", doc.BlobKey)
			return nil, nil, internal.ErrFileNotFound
		}
		return nil, nil, internal.NewInternalError("failed to open file", err)
	}
	return doc, rc, nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateDocumentDTO) (*Document, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Empty() {
		return doc, nil
	}

	changed := []string{}
	if dto.Title != nil {
		doc.Title = strings.TrimSpace(*dto.Title)
		changed = append(changed, "title")
	}
	if dto.CategoryID != nil {
		category, err := s.categories.Resolve(ctx, *dto.CategoryID)
		if err != nil {
			return nil, err
		}
		doc.CategoryID = category.ID
		changed = append(changed, "category_id")
	}
	if dto.PolicyTypeID != nil {
		if id := strings.TrimSpace(*dto.PolicyTypeID); id == "" {
			doc.PolicyTypeID = nil
		} else {
			pt, err := s.types.Resolve(ctx, id)
			if err != nil {
				return nil, err
			}
			doc.PolicyTypeID = &pt.ID
		}
		changed = append(changed, "policy_type_id")
	}
	if dto.DateIssued != nil {
		dateIssued, err := ParseDateIssued(*dto.DateIssued)
		if err != nil {
			return nil, err
		}
		doc.DateIssued = dateIssued.UTC()
		changed = append(changed, "date_issued")
	}
	if dto.OwnerDepartment != nil {
		doc.OwnerDepartment = strings.TrimSpace(*dto.OwnerDepartment)
		changed = append(changed, "owner_department")
	}
	if dto.Status != nil {
		doc.Status = *dto.Status
		changed = append(changed, "status")
	}
	if dto.IsVisibleToUsers != nil {
		doc.IsVisibleToUsers = *dto.IsVisibleToUsers
		changed = append(changed, "is_visible_to_users")
	}
	var grants []string
	if dto.VisibleToGroups != nil {
		grants = normalizeIDs(*dto.VisibleToGroups)
		doc.VisibleToGroups = grants
		changed = append(changed, "visible_to_groups")
	}
	if dto.Description != nil {
		doc.Description = *dto.Description
		changed = append(changed, "description")
	}
	if dto.Tags != nil {
		doc.Tags = normalizeTags(*dto.Tags)
		changed = append(changed, "tags")
	}

	if err := s.save(ctx, doc, grants); err != nil {
		return nil, err
	}
	s.publish(ctx, events.DocumentUpdated, doc, map[string]interface{}{"fields": changed})
	return doc, nil
}

// SetVisibility changes the public flag and/or the group grants.
func (s *Service) SetVisibility(ctx context.Context, id string, dto VisibilityDTO) (*Document, error) {
	if dto.Empty() {
		return nil, internal.ErrEmptyUpdate
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var grants []string
	if dto.IsVisibleToUsers != nil {
		doc.IsVisibleToUsers = *dto.IsVisibleToUsers
	}
	if dto.VisibleToGroups != nil {
		grants = normalizeIDs(*dto.VisibleToGroups)
		doc.VisibleToGroups = grants
	}

	if err := s.save(ctx, doc, grants); err != nil {
		return nil, err
	}
	s.publish(ctx, events.DocumentVisibilityChanged, doc, map[string]interface{}{
		"is_visible_to_users": doc.IsVisibleToUsers,
		"visible_to_groups":   doc.VisibleToGroups,
	})
	return doc, nil
}

// Delete moves the document to status deleted. Nothing is erased.
func (s *Service) Delete(ctx context.Context, id string) (*Document, error) {
	return s.setStatus(ctx, id, access.StatusDeleted, events.DocumentDeleted)
}

func (s *Service) Restore(ctx context.Context, id string) (*Document, error) {
	return s.setStatus(ctx, id, access.StatusActive, events.DocumentRestored)
}

// Replace uploads a new file as the next version. The history append and the
// document move happen in one transaction guarded by the version read here.
func (s *Service) Replace(ctx context.Context, id, changeSummary string, upload Upload) (*Document, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	ext, err := CheckExtension(upload.FileName, s.extensionsFor(doc.DocumentType))
	if err != nil {
		return nil, err
	}

	_, actor := internal.ActorFromContext(ctx)
	now := time.Now().UTC()
	expected := doc.Version
	next := expected + 1

	key := s.blobKey(doc, next, upload.FileName, ext)
	checksum, size, err := s.store(ctx, key, upload)
	if err != nil {
		return nil, err
	}

	summary := strings.TrimSpace(changeSummary)
	if summary == "" {
		summary = DefaultReplaceSummary
	}
	v := Version{
		VersionNumber: next,
		UploadDate:    now,
		UploadedBy:    actor,
		ChangeSummary: summary,
		FileURL:       FileURL(key),
		FileName:      upload.FileName,
		Checksum:      checksum,
		Size:          size,
		BlobKey:       key,
	}

	doc.Version = next
	doc.FileURL = v.FileURL
	doc.FileName = v.FileName
	doc.BlobKey = key
	doc.Touch(actor, now)

	err = s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		return tx.AppendVersion(ctx, ToDataModel(doc), expected, VersionToDataModel(doc.ID, uuid.NewString(), v))
	})
	if err != nil {
		if errors.Is(err, internal.ErrVersionConflict) {
			s.logger.Warn("concurrent replace detected", "id", id, "expected_version", expected)
			return nil, internal.ErrVersionConflict
		}
		s.logger.Error("failed to replace document", "id", id, "error", err)
		return nil, internal.NewInternalError(fmt.Sprintf("failed to replace %s file", s.collection.Name), err)
	}
	doc.VersionHistory = append(doc.VersionHistory, v)

	s.logger.Info("document version replaced", "id", doc.ID, "version", next, "actor", actor)
	s.publish(ctx, events.DocumentVersionReplaced, doc, map[string]interface{}{
		"version":        next,
		"file_name":      v.FileName,
		"change_summary": summary,
	})
	return doc, nil
}

func (s *Service) setStatus(ctx context.Context, id, status, eventType string) (*Document, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := doc.Status
	doc.Status = status

	if err := s.save(ctx, doc, nil); err != nil {
		return nil, err
	}
	s.publish(ctx, eventType, doc, map[string]interface{}{"previous_status": previous})
	return doc, nil
}

// save stamps and persists doc; grants are replaced when non-nil.
func (s *Service) save(ctx context.Context, doc *Document, grants []string) error {
	_, actor := internal.ActorFromContext(ctx)
	doc.Touch(actor, time.Now().UTC())

	err := s.repo.Transaction(ctx, func(tx RepositoryAPI) error {
		if err := tx.Update(ctx, ToDataModel(doc)); err != nil {
			return err
		}
		if grants != nil {
			return tx.ReplaceGrants(ctx, doc.ID, grants)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to save document", "id", doc.ID, "error", err)
		return internal.NewInternalError(fmt.Sprintf("failed to update %s", s.collection.Name), err)
	}
	return nil
}

// load reads a document for a mutation. Write access already implies the widest scope.
func (s *Service) load(ctx context.Context, id string) (*Document, error) {
	return s.find(ctx, id, access.Scope{Visibility: access.VisibilityAll})
}

func (s *Service) find(ctx context.Context, id string, scope access.Scope) (*Document, error) {
	if !validation.IsID(id) {
		return nil, s.collection.NotFound
	}
	row, err := s.repo.GetByID(ctx, id, Query{Scope: scope, DocumentType: s.collection.DocumentType})
	if err != nil {
		return nil, internal.NewInternalError(fmt.Sprintf("failed to load %s", s.collection.Name), err)
	}
	if row == nil {
		return nil, s.collection.NotFound
	}
	docs, err := s.assemble(ctx, []*documentDatamodel.Document{row})
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

func (s *Service) assemble(ctx context.Context, rows []*documentDatamodel.Document) ([]*Document, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	versions, err := s.repo.Versions(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load version history", err)
	}
	grants, err := s.repo.Grants(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load group grants", err)
	}

	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, FromDataModel(row, versions[row.ID], grants[row.ID]))
	}
	return docs, nil
}

func (s *Service) scopeFor(ctx context.Context, opts ReadOptions) access.Scope {
	if opts.Public {
		return access.PublicScope()
	}
	return access.ResolveScope(access.CallerFromContext(ctx), access.ScopeOptions{
		IncludeHidden:  opts.IncludeHidden,
		IncludeDeleted: opts.IncludeDeleted,
	})
}

func (s *Service) ensureNumberFree(ctx context.Context, number string) error {
	exists, err := s.repo.NumberExists(ctx, number)
	if err != nil {
		return internal.NewInternalError("failed to check document number", err)
	}
	if exists {
		return internal.NewConflictError(fmt.Sprintf("Document number %s already exists", number), internal.ErrCodeDuplicateNumber)
	}
	return nil
}

func (s *Service) extensionsFor(documentType string) []string {
	if documentType == TypePolicy {
		return s.opts.PolicyExtensions
	}
	return s.opts.DocumentExtensions
}

func (s *Service) blobKey(doc *Document, version int, fileName, ext string) string {
	if doc.DocumentType == TypePolicy {
		return PolicyBlobKey(doc.DocumentNumber, version, ext)
	}
	return DocumentBlobKey(doc.ID, version, fileName)
}

type byteCounter int64

func (c *byteCounter) Write(p []byte) (int, error) {
	*c += byteCounter(len(p))
	return len(p), nil
}

// store writes the upload under key, hashing it on the way through.
func (s *Service) store(ctx context.Context, key string, upload Upload) (string, int64, error) {
	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(upload.FileName)); byExt != "" {
			contentType = byExt
		}
	}

	hash := sha256.New()
	var n byteCounter
	body := io.TeeReader(upload.Reader, io.MultiWriter(hash, &n))
	if err := s.blobs.Put(ctx, key, body, upload.Size, contentType); err != nil {
		s.logger.Error("failed to store blob", "key", key, "backend", s.blobs.Name(), "error", err)
		return "", 0, internal.NewInternalError("failed to store file", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), int64(n), nil
}

func (s *Service) publish(ctx context.Context, eventType string, doc *Document, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	_, actor := internal.ActorFromContext(ctx)
	data["collection"] = s.collection.Name
	event := events.NewDocumentEvent(eventType, doc.ID, doc.DocumentNumber, actor, data)
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish document event", "event_type", eventType, "id", doc.ID, "error", err)
	}
}
