package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chakshi/chakshi-api/api/handlers"
	"github.com/chakshi/chakshi-api/databases/mocks"
	"github.com/chakshi/chakshi-api/models"
	"github.com/chakshi/chakshi-api/storage"
)

type fakeStore struct {
	saved   map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string][]byte{}}
}

func (s *fakeStore) Save(_ context.Context, name, _ string, r io.Reader, _ int64) (*storage.Object, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("key-%d-%s", len(s.saved), name)
	s.saved[key] = b
	return &storage.Object{Key: key, URL: "/uploads/" + key, Size: int64(len(b))}, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func multipartRequest(t *testing.T, field, filename, contentType string, content []byte, values map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	if field != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocument_UploadDocumentHandlerWrongField(t *testing.T) {
	store := newFakeStore()
	d := handlers.Document{DB: &mocks.DocumentDatabase{}, CaseDB: &mocks.CaseDatabase{}, Store: store, MaxBytes: 1 << 20}

	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "document", "brief.pdf", "application/pdf", []byte("%PDF-1.4"), nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	detail := decodeErrorDetail(t, rr)
	assert.Equal(t, models.ErrCodeFieldNameMismatch, detail.Code)
	assert.Equal(t, "document", detail.Field)
	assert.Empty(t, store.saved)
}

func TestDocument_UploadDocumentHandlerNoFile(t *testing.T) {
	d := handlers.Document{DB: &mocks.DocumentDatabase{}, CaseDB: &mocks.CaseDatabase{}, Store: newFakeStore(), MaxBytes: 1 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "", "", "", nil, map[string]string{"title": "x"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "no file uploaded", decodeEnvelope(t, rr).Message)
}

func TestDocument_UploadDocumentHandlerUnsupportedType(t *testing.T) {
	d := handlers.Document{DB: &mocks.DocumentDatabase{}, CaseDB: &mocks.CaseDatabase{}, Store: newFakeStore(), MaxBytes: 1 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "run.exe", "application/x-msdownload", []byte("MZ"), nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.ErrCodeUnsupportedType, decodeErrorDetail(t, rr).Code)
}

func TestDocument_UploadDocumentHandlerTooLarge(t *testing.T) {
	d := handlers.Document{DB: &mocks.DocumentDatabase{}, CaseDB: &mocks.CaseDatabase{}, Store: newFakeStore(), MaxBytes: 8}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "big.pdf", "application/pdf", bytes.Repeat([]byte("a"), 64), nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.ErrCodeFileTooLarge, decodeErrorDetail(t, rr).Code)
}

func TestDocument_UploadDocumentHandlerNotConfigured(t *testing.T) {
	d := handlers.Document{}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "a.pdf", "application/pdf", []byte("x"), nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, models.ErrCodeNotConfigured, decodeErrorDetail(t, rr).Code)
}

func TestDocument_UploadDocumentHandlerLinksCaseByNumber(t *testing.T) {
	caseID, _ := primitive.ObjectIDFromHex(caseHex)
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, bson.M{"caseNumber": "CIV/2025/099"}).Return(&models.Case{ID: caseID, CaseNumber: "CIV/2025/099"}, nil)
	caseDB.On("UpdateOne", mock.Anything, bson.M{"_id": caseID}, mock.MatchedBy(func(u bson.M) bool {
		_, ok := u["$push"].(bson.M)["documents"]
		return ok
	})).Return(int64(1), nil)

	docDB := &mocks.DocumentDatabase{}
	var inserted models.Document
	docDB.On("InsertOne", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.Document) }).
		Return(&mocks.InsertOneResultHelper{}, nil)

	store := newFakeStore()
	d := handlers.Document{DB: docDB, CaseDB: caseDB, Store: store, MaxBytes: 1 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "brief.pdf", "application/pdf", []byte("%PDF-1.4"),
		map[string]string{"caseNumber": "CIV/2025/099", "title": "Brief"}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.NotNil(t, inserted.CaseID)
	assert.Equal(t, caseID, *inserted.CaseID)
	assert.Equal(t, "CIV/2025/099", inserted.CaseNumber)
	assert.Empty(t, inserted.CaseRef)
	assert.Equal(t, "Brief", inserted.Title)
	assert.Equal(t, models.DocumentUploaded, inserted.Status)
	assert.Len(t, store.saved, 1)
	caseDB.AssertExpectations(t)
}

func TestDocument_UploadDocumentHandlerKeepsUnresolvedRef(t *testing.T) {
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, bson.M{"caseNumber": "OLD-REF-7"}).Return(nil, mongo.ErrNoDocuments)

	docDB := &mocks.DocumentDatabase{}
	var inserted models.Document
	docDB.On("InsertOne", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.Document) }).
		Return(&mocks.InsertOneResultHelper{}, nil)

	d := handlers.Document{DB: docDB, CaseDB: caseDB, Store: newFakeStore(), MaxBytes: 1 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "scan.png", "image/png", []byte("png"),
		map[string]string{"caseNumber": "OLD-REF-7"}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Nil(t, inserted.CaseID)
	assert.Equal(t, "OLD-REF-7", inserted.CaseRef)
	assert.Equal(t, "scan.png", inserted.Title)
	caseDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocument_UploadDocumentHandlerResolvesCaseID(t *testing.T) {
	caseID, _ := primitive.ObjectIDFromHex(caseHex)
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("FindOne", mock.Anything, bson.M{"caseNumber": caseHex}).Return(nil, mongo.ErrNoDocuments)
	caseDB.On("FindOne", mock.Anything, bson.M{"_id": caseID}).Return(&models.Case{ID: caseID, CaseNumber: "CRL/4"}, nil)
	caseDB.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	docDB := &mocks.DocumentDatabase{}
	var inserted models.Document
	docDB.On("InsertOne", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.Document) }).
		Return(&mocks.InsertOneResultHelper{}, nil)

	d := handlers.Document{DB: docDB, CaseDB: caseDB, Store: newFakeStore(), MaxBytes: 1 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "order.pdf", "application/pdf", []byte("%PDF"),
		map[string]string{"caseId": caseHex}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "CRL/4", inserted.CaseNumber)
}

func TestDocument_UploadDocumentHandlerRemovesFileWhenInsertFails(t *testing.T) {
	docDB := &mocks.DocumentDatabase{}
	docDB.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("mongo down"))

	store := newFakeStore()
	d := handlers.Document{DB: docDB, CaseDB: &mocks.CaseDatabase{}, Store: store, MaxBytes: 1 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "brief.pdf", "application/pdf", []byte("%PDF"), nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Len(t, store.saved, 1)
	for key := range store.saved {
		assert.Equal(t, []string{key}, store.deleted)
	}
}

func TestDocument_UpdateDocumentStatusHandlerRejectsUnknownStatus(t *testing.T) {
	docDB := &mocks.DocumentDatabase{}
	d := handlers.Document{DB: docDB}
	rr := serve(d.UpdateDocumentStatusHandler, newRequest(t, "PATCH", "/", map[string]string{"status": "lost"}, map[string]string{"documentId": caseHex}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	docDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocument_DeleteDocumentHandler(t *testing.T) {
	docID, _ := primitive.ObjectIDFromHex(entryHex)
	caseID, _ := primitive.ObjectIDFromHex(caseHex)
	docDB := &mocks.DocumentDatabase{}
	docDB.On("FindOne", mock.Anything, bson.M{"_id": docID}).Return(&models.Document{ID: docID, StorageKey: "k1", CaseID: &caseID}, nil)
	docDB.On("DeleteOne", mock.Anything, bson.M{"_id": docID}).Return(int64(1), nil)
	caseDB := &mocks.CaseDatabase{}
	caseDB.On("UpdateOne", mock.Anything, bson.M{"_id": caseID}, mock.Anything).Return(int64(1), nil)

	store := newFakeStore()
	d := handlers.Document{DB: docDB, CaseDB: caseDB, Store: store}
	rr := serve(d.DeleteDocumentHandler, newRequest(t, "DELETE", "/", nil, map[string]string{"documentId": entryHex}))

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"k1"}, store.deleted)
	caseDB.AssertExpectations(t)
}

func TestDocument_DeleteDocumentHandlerNotFound(t *testing.T) {
	docDB := &mocks.DocumentDatabase{}
	docDB.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	d := handlers.Document{DB: docDB}
	rr := serve(d.DeleteDocumentHandler, newRequest(t, "DELETE", "/", nil, map[string]string{"documentId": entryHex}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDocument_UploadDocumentHandlerRemovesTempFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	docDB := &mocks.DocumentDatabase{}
	docDB.On("InsertOne", mock.Anything, mock.Anything).Return(&mocks.InsertOneResultHelper{}, nil)
	big := bytes.Repeat([]byte("a"), 2<<20)

	d := handlers.Document{DB: docDB, CaseDB: &mocks.CaseDatabase{}, Store: newFakeStore(), MaxBytes: 4 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "record.pdf", "application/pdf", big, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = serve(d.UploadDocumentHandler, multipartRequest(t, "file", "record.exe", "application/x-msdownload", big, nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDocument_UploadDocumentHandlerLinksClient(t *testing.T) {
	clientID, _ := primitive.ObjectIDFromHex(partyHex)
	docDB := &mocks.DocumentDatabase{}
	var inserted models.Document
	docDB.On("InsertOne", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.Document) }).
		Return(&mocks.InsertOneResultHelper{}, nil)
	partyDB := &mocks.PartyDatabase{}
	var update bson.M
	partyDB.On("UpdateOne", mock.Anything, bson.M{"_id": clientID}, mock.Anything).
		Run(func(args mock.Arguments) { update = args.Get(2).(bson.M) }).
		Return(int64(1), nil)

	d := handlers.Document{DB: docDB, CaseDB: &mocks.CaseDatabase{}, PartyDB: partyDB, Store: newFakeStore(), MaxBytes: 1 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "aadhaar.pdf", "application/pdf", []byte("%PDF"),
		map[string]string{"clientId": partyHex}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.NotNil(t, inserted.ClientID)
	assert.Equal(t, clientID, *inserted.ClientID)
	assert.Equal(t, bson.M{"documents": inserted.ID}, update["$addToSet"])
}

func TestDocument_UploadDocumentHandlerIgnoresMalformedClientID(t *testing.T) {
	docDB := &mocks.DocumentDatabase{}
	var inserted models.Document
	docDB.On("InsertOne", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.Document) }).
		Return(&mocks.InsertOneResultHelper{}, nil)
	partyDB := &mocks.PartyDatabase{}

	d := handlers.Document{DB: docDB, CaseDB: &mocks.CaseDatabase{}, PartyDB: partyDB, Store: newFakeStore(), MaxBytes: 1 << 20}
	rr := serve(d.UploadDocumentHandler, multipartRequest(t, "file", "a.pdf", "application/pdf", []byte("%PDF"),
		map[string]string{"clientId": "client-42"}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Nil(t, inserted.ClientID)
	partyDB.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocument_DeleteDocumentHandlerUnlinksClient(t *testing.T) {
	docID, _ := primitive.ObjectIDFromHex(entryHex)
	clientID, _ := primitive.ObjectIDFromHex(partyHex)
	docDB := &mocks.DocumentDatabase{}
	docDB.On("FindOne", mock.Anything, bson.M{"_id": docID}).Return(&models.Document{ID: docID, ClientID: &clientID}, nil)
	docDB.On("DeleteOne", mock.Anything, bson.M{"_id": docID}).Return(int64(1), nil)
	partyDB := &mocks.PartyDatabase{}
	partyDB.On("UpdateOne", mock.Anything, bson.M{"_id": clientID}, bson.M{"$pull": bson.M{"documents": docID}}).Return(int64(1), nil)

	d := handlers.Document{DB: docDB, PartyDB: partyDB}
	rr := serve(d.DeleteDocumentHandler, newRequest(t, "DELETE", "/", nil, map[string]string{"documentId": entryHex}))

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	partyDB.AssertExpectations(t)
}
