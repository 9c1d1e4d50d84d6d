package gateway

import (
	"time"

	"github.com/gatescan/terminal/internal/model"
)

// Offline fallback payloads, keyed by endpoint path. They are substituted
// only on transport failure, never on an explicit server error, so the
// terminal stays demonstrable without a reachable gateway. The values are
// fixed so demos and tests are deterministic.

func mockScanResponse(now time.Time) *ScanResponse {
	ms := now.UnixMilli()
	return &ScanResponse{
		Valid: true,
		Submission: &model.Submission{
			ID:                "mock-sub-1",
			CompanyName:       "Acme Logistics",
			VehicleNumber:     "MH12AB1234",
			DriverPhone:       "+911234567890",
			HelperPhone:       "+919876543210",
			PreferredLanguage: "English",
			Documents:         []string{"Driving License", "RC Book", "Insurance"},
			Status:            model.StatusPending,
			CreatedAt:         ms - 30*time.Minute.Milliseconds(),
			ExpiresAt:         ms + 12*time.Hour.Milliseconds(),
		},
	}
}

func mockVerifyResponse() *VerifyResponse {
	return &VerifyResponse{
		TokenNumber: "GT-784213",
		SMSStatus:   model.SMSStatus{Sent: true, Provider: "mock"},
	}
}

func mockRejectResponse() *RejectResponse {
	return &RejectResponse{Success: true}
}

// fillMock writes the canned payload for path into out, reporting whether a
// fallback exists. Login deliberately has none: an unreachable gateway must
// not mint credentials.
func (c *Client) fillMock(path string, out any) bool {
	switch path {
	case "/scan":
		if resp, ok := out.(*ScanResponse); ok {
			*resp = *mockScanResponse(c.now())
			return true
		}
	case "/verify":
		if resp, ok := out.(*VerifyResponse); ok {
			*resp = *mockVerifyResponse()
			return true
		}
	case "/reject":
		if resp, ok := out.(*RejectResponse); ok {
			*resp = *mockRejectResponse()
			return true
		}
	}
	return false
}
