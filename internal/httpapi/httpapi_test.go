package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/attendance"
	"classtrack/internal/config"
	"classtrack/internal/school"
)

// memStore is an in-memory school.Store backing handler tests.
type memStore struct {
	classes  map[string]school.Class
	students map[string]school.Student
	profiles map[string]school.Profile
	tokens   map[string]string // token -> profile id, deleted on revoke
}

func newMemStore() *memStore {
	return &memStore{
		classes:  make(map[string]school.Class),
		students: make(map[string]school.Student),
		profiles: make(map[string]school.Profile),
		tokens:   make(map[string]string),
	}
}

func (m *memStore) InsertClass(ctx context.Context, c school.Class) (school.Class, error) {
	m.classes[c.ID] = c
	return c, nil
}

func (m *memStore) UpdateClass(ctx context.Context, c school.Class) (school.Class, error) {
	m.classes[c.ID] = c
	return c, nil
}

func (m *memStore) GetClass(ctx context.Context, id string) (*school.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) ListClasses(ctx context.Context) ([]school.Class, error) {
	var res []school.Class
	for _, c := range m.classes {
		res = append(res, c)
	}
	return res, nil
}

func (m *memStore) InsertStudent(ctx context.Context, s school.Student) (school.Student, error) {
	m.students[s.ID] = s
	return s, nil
}

func (m *memStore) UpdateStudent(ctx context.Context, s school.Student) (school.Student, error) {
	m.students[s.ID] = s
	return s, nil
}

func (m *memStore) SetStudentActive(ctx context.Context, id string, active bool) error {
	s, ok := m.students[id]
	if !ok {
		return school.ErrNotFound
	}
	s.Active = active
	m.students[id] = s
	return nil
}

func (m *memStore) GetStudent(ctx context.Context, id string) (*school.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *memStore) ListStudents(ctx context.Context, classID string) ([]school.Student, error) {
	var res []school.Student
	for _, s := range m.students {
		if classID == "" || s.ClassID == classID {
			res = append(res, s)
		}
	}
	return res, nil
}

func (m *memStore) Roster(ctx context.Context, classID string) ([]school.Student, error) {
	var res []school.Student
	for _, s := range m.students {
		if s.ClassID == classID && s.Active {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].LastName < res[j].LastName })
	return res, nil
}

func (m *memStore) InsertProfile(ctx context.Context, p school.Profile) (school.Profile, error) {
	m.profiles[p.ID] = p
	return p, nil
}

func (m *memStore) UpdateProfile(ctx context.Context, p school.Profile) (school.Profile, error) {
	m.profiles[p.ID] = p
	return p, nil
}

func (m *memStore) GetProfile(ctx context.Context, id string) (*school.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memStore) GetProfileByEmail(ctx context.Context, email string) (*school.Profile, error) {
	for _, p := range m.profiles {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListProfiles(ctx context.Context) ([]school.Profile, error) {
	var res []school.Profile
	for _, p := range m.profiles {
		res = append(res, p)
	}
	return res, nil
}

func (m *memStore) SaveRefreshToken(ctx context.Context, profileID, token string, expiresAt time.Time) error {
	m.tokens[token] = profileID
	return nil
}

func (m *memStore) RefreshTokenProfile(ctx context.Context, token string) (string, error) {
	return m.tokens[token], nil
}

func (m *memStore) RevokeRefreshToken(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

// memRecords is an in-memory attendance.RecordStore enforcing the
// one-record-per-student-per-day constraint.
type memRecords struct {
	records   map[string]attendance.Record
	summaries map[string]attendance.Summary
	insertErr error
}

func newMemRecords() *memRecords {
	return &memRecords{
		records:   make(map[string]attendance.Record),
		summaries: make(map[string]attendance.Summary),
	}
}

func (m *memRecords) ListForDate(ctx context.Context, classID, date string) ([]attendance.Record, error) {
	var res []attendance.Record
	for _, r := range m.records {
		if r.ClassID == classID && r.Date == date {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memRecords) InsertBatch(ctx context.Context, inserts []attendance.Insert) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, ins := range inserts {
		for _, r := range m.records {
			if r.StudentID == ins.StudentID && r.Date == ins.Date {
				return fmt.Errorf("%w", attendance.ErrDuplicateRecord)
			}
		}
		id := uuid.NewString()
		m.records[id] = attendance.Record{
			ID: id, StudentID: ins.StudentID, ClassID: ins.ClassID,
			TeacherID: ins.TeacherID, Date: ins.Date, Status: ins.Status, Notes: ins.Notes,
		}
	}
	return nil
}

func (m *memRecords) UpdateRecord(ctx context.Context, u attendance.Update) error {
	r, ok := m.records[u.RecordID]
	if !ok {
		return fmt.Errorf("record %s not found", u.RecordID)
	}
	r.Status = u.Status
	r.Notes = u.Notes
	r.UpdatedAt = u.UpdatedAt
	m.records[u.RecordID] = r
	return nil
}

func (m *memRecords) CountStatuses(ctx context.Context, classID, date string) (present, late, absent int, err error) {
	for _, r := range m.records {
		if r.ClassID != classID || r.Date != date {
			continue
		}
		switch r.Status {
		case attendance.StatusPresent:
			present++
		case attendance.StatusLate:
			late++
		case attendance.StatusAbsent:
			absent++
		}
	}
	return present, late, absent, nil
}

func (m *memRecords) UpsertSummary(ctx context.Context, s attendance.Summary) error {
	m.summaries[s.ClassID+"|"+s.Date] = s
	return nil
}

func (m *memRecords) GetSummary(ctx context.Context, classID, date string) (*attendance.Summary, error) {
	if s, ok := m.summaries[classID+"|"+date]; ok {
		return &s, nil
	}
	return nil, nil
}

type fixture struct {
	router  *gin.Engine
	store   *memStore
	records *memRecords
	attSvc  *attendance.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	records := newMemRecords()
	schoolSvc := school.NewService(store)
	attSvc := attendance.NewService(schoolSvc, records, nil)

	cfg := config.App{
		JWTIssuer:     "classtrack-test",
		JWTSigningKey: "test-signing-key",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
	api := &API{Cfg: cfg, School: schoolSvc, Attendance: attSvc}
	r := gin.New()
	api.Register(r)

	// seed a class with two students and the two roles
	store.classes["c1"] = school.Class{ID: "c1", Name: "5A", YearLevel: 5, Active: true}
	store.students["s1"] = school.Student{ID: "s1", StudentNumber: "S-1", FirstName: "Alice", LastName: "Anders", ClassID: "c1", Active: true}
	store.students["s2"] = school.Student{ID: "s2", StudentNumber: "S-2", FirstName: "Bob", LastName: "Baker", ClassID: "c1", Active: true}
	store.profiles["teach"] = school.Profile{ID: "teach", Email: "teacher@school.test", FullName: "Pat Teacher", Role: school.RoleTeacher, Status: school.StatusActive}
	store.profiles["boss"] = school.Profile{ID: "boss", Email: "admin@school.test", FullName: "Sam Admin", Role: school.RoleAdmin, Status: school.StatusActive}

	return &fixture{router: r, store: store, records: records, attSvc: attSvc}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T, identity string) (access, refresh string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/sessions", "", gin.H{"identity": identity})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken, resp.RefreshToken
}

func TestSessionFlow(t *testing.T) {
	f := setup(t)

	access, refresh := f.login(t, "teacher@school.test")

	rec := f.do(t, http.MethodGet, "/v1/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me school.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "teach", me.ID)

	rec = f.do(t, http.MethodPost, "/v1/sessions/refresh", "", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusOK, rec.Code)

	// refresh tokens rotate; the old one is dead
	rec = f.do(t, http.MethodPost, "/v1/sessions/refresh", "", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionRejections(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/v1/sessions", "", gin.H{"identity": "nobody@school.test"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	paused := f.store.profiles["teach"]
	paused.Status = school.StatusPaused
	f.store.profiles["teach"] = paused
	rec = f.do(t, http.MethodPost, "/v1/sessions", "", gin.H{"identity": "teacher@school.test"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoleGate(t *testing.T) {
	f := setup(t)
	teacherTok, _ := f.login(t, "teacher@school.test")
	adminTok, _ := f.login(t, "admin@school.test")

	body := gin.H{"name": "6B", "year_level": 6}
	rec := f.do(t, http.MethodPost, "/v1/admin/classes", teacherTok, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/admin/classes", adminTok, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAdminStudentLifecycle(t *testing.T) {
	f := setup(t)
	adminTok, _ := f.login(t, "admin@school.test")

	rec := f.do(t, http.MethodPost, "/v1/admin/students", adminTok, gin.H{
		"student_number": "S-3", "first_name": "Cara", "last_name": "Cole", "class_id": "c1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created school.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Active)

	rec = f.do(t, http.MethodDelete, "/v1/admin/students/"+created.ID, adminTok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// deactivated students stay listed but leave the roster
	rec = f.do(t, http.MethodGet, "/v1/admin/students?class_id=c1", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Students []school.Student `json:"students"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Students, 3)

	rec = f.do(t, http.MethodGet, "/v1/classes/c1/roster", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roster struct {
		Students []school.Student `json:"students"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roster))
	assert.Len(t, roster.Students, 2)

	// missing required fields
	rec = f.do(t, http.MethodPost, "/v1/admin/students", adminTok, gin.H{"first_name": "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSheetAndSubmitFlow(t *testing.T) {
	f := setup(t)
	tok, _ := f.login(t, "teacher@school.test")

	rec := f.do(t, http.MethodGet, "/v1/attendance/sheet?class_id=c1&date=2026-03-02", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sheet struct {
		Entries     map[string]attendance.Entry `json:"entries"`
		ExistingIDs map[string]string           `json:"existing_ids"`
		Unmarked    int                         `json:"unmarked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheet))
	assert.Empty(t, sheet.Entries)
	assert.Equal(t, 2, sheet.Unmarked)

	rec = f.do(t, http.MethodPost, "/v1/attendance/submit", tok, gin.H{
		"class_id": "c1", "date": "2026-03-02",
		"entries": gin.H{"s1": gin.H{"status": "present"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result attendance.SubmitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, attendance.SubmitResult{Inserted: 1, Updated: 0, Unmarked: 1}, result)

	// reload: Alice's mark is now backed by a persisted record
	rec = f.do(t, http.MethodGet, "/v1/attendance/sheet?class_id=c1&date=2026-03-02", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheet))
	assert.Equal(t, attendance.StatusPresent, sheet.Entries["s1"].Status)
	assert.Contains(t, sheet.ExistingIDs, "s1")

	// second submit updates Alice and inserts Bob
	rec = f.do(t, http.MethodPost, "/v1/attendance/submit", tok, gin.H{
		"class_id": "c1", "date": "2026-03-02",
		"entries": gin.H{
			"s1": gin.H{"status": "absent", "notes": "left early"},
			"s2": gin.H{"status": "late"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, attendance.SubmitResult{Inserted: 1, Updated: 1, Unmarked: 0}, result)
}

func TestSubmitConflict(t *testing.T) {
	f := setup(t)
	tok, _ := f.login(t, "teacher@school.test")

	f.records.insertErr = fmt.Errorf("%w", attendance.ErrDuplicateRecord)
	rec := f.do(t, http.MethodPost, "/v1/attendance/submit", tok, gin.H{
		"class_id": "c1", "date": "2026-03-02",
		"entries": gin.H{"s1": gin.H{"status": "present"}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSheetValidation(t *testing.T) {
	f := setup(t)
	tok, _ := f.login(t, "teacher@school.test")

	rec := f.do(t, http.MethodGet, "/v1/attendance/sheet?class_id=c1", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/attendance/sheet?date=2026-03-02", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/attendance/submit", tok, gin.H{
		"class_id": "c1", "date": "2026-03-02",
		"entries": gin.H{"s1": gin.H{"status": "vanished"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSheetUsesDefaultClass(t *testing.T) {
	f := setup(t)
	teach := f.store.profiles["teach"]
	defaultClass := "c1"
	teach.DefaultClassID = &defaultClass
	f.store.profiles["teach"] = teach
	tok, _ := f.login(t, "teacher@school.test")

	rec := f.do(t, http.MethodGet, "/v1/attendance/sheet?date=2026-03-02", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sheet struct {
		ClassID string `json:"class_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheet))
	assert.Equal(t, "c1", sheet.ClassID)
}

func TestSummaryEndpoint(t *testing.T) {
	f := setup(t)
	tok, _ := f.login(t, "teacher@school.test")

	rec := f.do(t, http.MethodGet, "/v1/attendance/summary?class_id=c1&date=2026-03-02", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := f.attSvc.Submit(context.Background(), "teach", "c1", "2026-03-02", map[string]attendance.Entry{
		"s1": {Status: attendance.StatusPresent},
		"s2": {Status: attendance.StatusLate},
	})
	require.NoError(t, err)
	_, err = f.attSvc.RefreshSummary(context.Background(), "c1", "2026-03-02")
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/v1/attendance/summary?class_id=c1&date=2026-03-02", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary attendance.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, 1, summary.Late)
	assert.Equal(t, 2, summary.Marked)
	assert.Equal(t, 2, summary.RosterSize)
}
