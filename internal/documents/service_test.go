package documents

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/ai"
	"github.com/procurehq/procure-server/internal/errs"
	"github.com/procurehq/procure-server/internal/models"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/storage"
	"github.com/procurehq/procure-server/internal/store"
)

type fakeRepo struct {
	docs      map[string]*models.Document
	analyses  map[string]string
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: map[string]*models.Document{}, analyses: map[string]string{}}
}

func (f *fakeRepo) Create(_ context.Context, doc *models.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*models.Document, error) {
	return f.docs[id], nil
}

func (f *fakeRepo) ListByEntity(_ context.Context, entityType, entityID string) ([]*models.Document, error) {
	var out []*models.Document
	for _, d := range f.docs {
		if d.EntityType == entityType && d.EntityID == entityID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateAnalysis(_ context.Context, id, analysis string) error {
	f.analyses[id] = analysis
	return nil
}

type fakeClassifier struct {
	gotText string
	result  *ai.DocumentClassification
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (*ai.DocumentClassification, error) {
	f.gotText = text
	return f.result, nil
}

var officerActor = models.Actor{ID: "officer", Name: "Olivia Officer", Role: models.RoleProcurementOfficer}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeClassifier, *store.Memory) {
	t.Helper()
	logger := zap.NewNop()

	objects, err := storage.NewLocalStorage(t.TempDir(), logger)
	require.NoError(t, err)

	mem := store.NewMemory()
	require.NoError(t, mem.InsertOne(context.Background(), "contracts", store.Record{
		"id": "c1", "contract_number": "CTR-20250301-AAAA", "title": "Network upgrade", "status": "draft",
	}))

	repo := newFakeRepo()
	classifier := &fakeClassifier{result: &ai.DocumentClassification{
		Category:   "contract",
		Summary:    "A supply agreement.",
		KeyTerms:   []string{"supply", "term"},
		Confidence: 0.9,
	}}
	svc := NewService(repo, objects, mem, registry.New(), NewTextExtractor(logger), classifier, logger)
	return svc, repo, classifier, mem
}

func upload(t *testing.T, svc *Service, name, content string) *models.Document {
	t.Helper()
	doc, err := svc.Upload(context.Background(), officerActor, registry.TypeContract, "c1",
		name, "text/plain", int64(len(content)), strings.NewReader(content))
	require.NoError(t, err)
	return doc
}

func TestUpload(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	doc := upload(t, svc, "agreement.txt", "signed agreement text")
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, registry.TypeContract, doc.EntityType)
	assert.Equal(t, "c1", doc.EntityID)
	assert.Equal(t, "agreement.txt", doc.FileName)
	assert.Equal(t, int64(len("signed agreement text")), doc.SizeBytes)
	assert.Equal(t, "officer", doc.UploadedBy)
	assert.True(t, strings.HasPrefix(doc.StorageKey, "contract/c1/"))
	assert.True(t, strings.HasSuffix(doc.StorageKey, ".txt"))
	assert.Contains(t, repo.docs, doc.ID)

	// The stored content round-trips.
	got, rc, err := svc.Download(context.Background(), doc.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "signed agreement text", string(body))
	assert.Equal(t, doc.ID, got.ID)
}

func TestUploadStripsDirectories(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	doc := upload(t, svc, "../../evil.txt", "content")
	assert.Equal(t, "evil.txt", doc.FileName)
}

func TestUploadFailures(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	body := strings.NewReader("x")

	tests := []struct {
		name       string
		actor      models.Actor
		entityType string
		entityID   string
		fileName   string
		size       int64
		wantErr    func(error) bool
	}{
		{"unknown type", officerActor, "invoice", "c1", "a.txt", 1, errs.IsInvalidInput},
		{"staff forbidden", models.Actor{ID: "s1", Role: models.RoleStaff}, registry.TypeContract, "c1", "a.txt", 1, errs.IsForbidden},
		{"missing entity", officerActor, registry.TypeContract, "ghost", "a.txt", 1, errs.IsNotFound},
		{"empty file name", officerActor, registry.TypeContract, "c1", "  ", 1, errs.IsInvalidInput},
		{"zero size", officerActor, registry.TypeContract, "c1", "a.txt", 0, errs.IsInvalidInput},
		{"oversized", officerActor, registry.TypeContract, "c1", "a.txt", MaxUploadBytes + 1, errs.IsInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tt.actor, tt.entityType, tt.entityID, tt.fileName, "text/plain", tt.size, body)
			require.Error(t, err)
			assert.True(t, tt.wantErr(err), "got %v", err)
		})
	}
}

func TestUploadCleansUpOnRepoFailure(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.createErr = io.ErrUnexpectedEOF

	_, err := svc.Upload(context.Background(), officerActor, registry.TypeContract, "c1",
		"a.txt", "text/plain", 7, strings.NewReader("content"))
	assert.Error(t, err)
	assert.Empty(t, repo.docs)
}

func TestList(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	docs, err := svc.List(ctx, registry.TypeContract, "c1")
	require.NoError(t, err)
	assert.Empty(t, docs)

	upload(t, svc, "one.txt", "first")
	upload(t, svc, "two.txt", "second")

	docs, err = svc.List(ctx, registry.TypeContract, "c1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = svc.List(ctx, registry.TypeContract, "ghost")
	assert.True(t, errs.IsNotFound(err))
}

func TestClassify(t *testing.T) {
	svc, repo, classifier, _ := newTestService(t)
	ctx := context.Background()

	doc := upload(t, svc, "agreement.txt", "the parties agree to supply goods")

	result, err := svc.Classify(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "contract", result.Category)
	assert.Equal(t, "the parties agree to supply goods", classifier.gotText)

	stored := repo.analyses[doc.ID]
	assert.Contains(t, stored, `"category":"contract"`)
	assert.Contains(t, stored, `"confidence":0.9`)
}

func TestClassifyFailures(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Classify(ctx, "ghost")
	assert.True(t, errs.IsNotFound(err))

	// A format with no text extraction cannot be classified.
	doc := upload(t, svc, "photo.jpg", "\xff\xd8\xff")
	_, err = svc.Classify(ctx, doc.ID)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestClassifyUnconfigured(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	svc.classifier = nil

	doc := upload(t, svc, "a.txt", "text")
	_, err := svc.Classify(context.Background(), doc.ID)
	assert.Error(t, err)
	assert.False(t, errs.IsNotFound(err))
}

func TestExtractPassthroughAndUnsupported(t *testing.T) {
	e := NewTextExtractor(zap.NewNop())

	text, err := e.Extract("notes.txt", []byte("plain body"))
	require.NoError(t, err)
	assert.Equal(t, "plain body", text)

	text, err = e.Extract("data.csv", []byte("a,b\n1,2"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2", text)

	_, err = e.Extract("archive.zip", []byte("PK"))
	assert.Error(t, err)
}
