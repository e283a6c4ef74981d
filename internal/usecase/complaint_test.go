package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var complaintNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestComplaintService(t *testing.T, kv *fakeKV) *ComplaintService {
	t.Helper()
	s, err := NewComplaintService(kv, discardLogger())
	require.NoError(t, err)
	s.now = func() time.Time { return complaintNow }
	return s
}

func validComplaint() ComplaintInput {
	return ComplaintInput{
		ClientID:    "203.0.113.10",
		Description: "A obra da praça central está parada há seis meses sem explicação.",
	}
}

func TestNewComplaintService_NilKV(t *testing.T) {
	_, err := NewComplaintService(nil, nil)
	require.Error(t, err)
}

func TestSubmit_HappyPath(t *testing.T) {
	stubUUID(t, "c-1")
	kv := newFakeKV()
	s := newTestComplaintService(t, kv)

	in := validComplaint()
	in.Subject = "  Obra parada  "
	in.Email = "cidadao@exemplo.org"
	in.Area = " obras "
	receipt, err := s.Submit(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "c-1", receipt.ID)
	require.Regexp(t, regexp.MustCompile(`^SNT-[A-Z0-9]+$`), receipt.Protocol)
	require.Equal(t, newProtocol(complaintNow.UnixMilli()), receipt.Protocol)

	fields := kv.hashes["denuncia:c-1"]
	require.Equal(t, "recebida", fields["status"])
	require.Equal(t, receipt.Protocol, fields["proto"])
	require.Equal(t, `"Obra parada"`, fields["subject"])
	require.Equal(t, `"obras"`, fields["area"])
	require.Equal(t, "203.0.113.10", fields["ip"])
	require.Equal(t, "2026-03-01T12:00:00.000Z", fields["createdAt"])
	require.Equal(t, fields["createdAt"], fields["updatedAt"])

	var contact struct {
		Email *string `json:"email"`
		Phone *string `json:"phone"`
	}
	require.NoError(t, json.Unmarshal([]byte(fields["contact"]), &contact))
	require.Equal(t, "cidadao@exemplo.org", *contact.Email)
	require.Nil(t, contact.Phone)

	require.Equal(t, float64(complaintNow.UnixMilli()), kv.zsets["denuncia:index"]["c-1"])
	require.Equal(t, "1", kv.values["stats:denuncias:total"])
}

func TestSubmit_OptionalFieldsAndClipping(t *testing.T) {
	stubUUID(t, "c-2")
	kv := newFakeKV()
	s := newTestComplaintService(t, kv)

	in := validComplaint()
	in.ClientID = "2001:db8:85a3:0000:0000:8a2e:0370:7334"
	in.Subject = strings.Repeat("s", 250)
	in.Description = "   " + in.Description + "   "
	_, err := s.Submit(context.Background(), in)
	require.NoError(t, err)

	fields := kv.hashes["denuncia:c-2"]
	require.Equal(t, `"`+strings.Repeat("s", 200)+`"`, fields["subject"])
	require.Equal(t, "null", fields["area"])
	require.Equal(t, `{"email":null,"phone":null}`, fields["contact"])
	require.Equal(t, "2001:db8:85a3:0", fields["ip"])
	require.Equal(t, validComplaint().Description, fields["description"])
}

func TestSubmit_RateLimited(t *testing.T) {
	kv := newFakeKV()
	s := newTestComplaintService(t, kv)
	for i := 0; i < 5; i++ {
		_, err := s.Submit(context.Background(), validComplaint())
		require.NoError(t, err)
	}
	_, err := s.Submit(context.Background(), validComplaint())
	ue := expectCode(t, err, ErrorRateLimited)
	require.Equal(t, "Muitas tentativas. Tente novamente em 1 hora.", ue.Message)
	require.Equal(t, "5", kv.values["rate_limit:203.0.113.10"])
	require.Equal(t, "5", kv.values["stats:denuncias:total"])
}

func TestSubmit_ValidationAfterRateCheck(t *testing.T) {
	kv := newFakeKV()
	s := newTestComplaintService(t, kv)
	_, err := s.Submit(context.Background(), ComplaintInput{ClientID: "x", Description: "curta"})
	ue := expectCode(t, err, ErrorInvalidInput)
	require.Equal(t, "Descreva os fatos com pelo menos 30 caracteres", ue.Message)
	require.Equal(t, "1", kv.values["rate_limit:x"])
	require.Empty(t, kv.hashes)
}

func TestSubmit_PrimaryWriteFailure(t *testing.T) {
	kv := newFakeKV()
	kv.hsetErr = errors.New("OOM")
	s := newTestComplaintService(t, kv)
	_, err := s.Submit(context.Background(), validComplaint())
	ue := expectCode(t, err, ErrorInternal)
	require.Equal(t, "complaint_write_error", ue.Reason)
}

func TestSubmit_SecondaryWriteFailuresAreLogged(t *testing.T) {
	kv := newFakeKV()
	kv.zaddErr = errors.New("WRONGTYPE")
	kv.incrErr = errors.New("WRONGTYPE")
	s := newTestComplaintService(t, kv)
	receipt, err := s.Submit(context.Background(), validComplaint())
	require.NoError(t, err)
	require.NotEmpty(t, receipt.ID)
}

func TestNewProtocol(t *testing.T) {
	require.Equal(t, "SNT-0", newProtocol(0))
	require.Equal(t, "SNT-ZZ", newProtocol(36*36-1))
}
