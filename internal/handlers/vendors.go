package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"taskhub/models"

	"github.com/go-chi/chi/v5"
)

type vendorRequest struct {
	UserID       int    `json:"userId"`
	CompanyName  string `json:"companyName"`
	ContactEmail string `json:"contactEmail"`
}

func validateVendorRequest(req *vendorRequest) error {
	if req.UserID <= 0 {
		return errors.New("userId must be positive")
	}
	if req.CompanyName == "" || len(req.CompanyName) > 150 {
		return errors.New("companyName is required and max length 150")
	}
	if req.ContactEmail != "" && !strings.Contains(req.ContactEmail, "@") {
		return errors.New("invalid contactEmail")
	}
	return nil
}

// CreateVendorHandler обрабатывает POST /api/vendors, только админ
func (h *Handler) CreateVendorHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req vendorRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if err := validateVendorRequest(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Привязанный пользователь должен существовать и иметь роль vendor
	user, err := h.Store.GetUser(r.Context(), req.UserID)
	if err != nil {
		h.storeError(w, err, "failed to get user")
		return
	}
	if user.Role != models.RoleVendor {
		h.respondError(w, http.StatusBadRequest, "user must have vendor role")
		return
	}

	vendor := models.Vendor{
		UserID:       req.UserID,
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
	}
	if err := h.Store.CreateVendor(r.Context(), &vendor); err != nil {
		h.storeError(w, err, "failed to create vendor")
		return
	}

	h.audit(r, identity.ID, "create_vendor", "created vendor "+vendor.CompanyName)
	h.respond(w, http.StatusOK, vendor)
}

func (h *Handler) GetVendorsHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin && identity.Role != models.RoleManager {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	params := parsePaginationParams(r)

	vendors, err := h.Store.GetVendors(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.storeError(w, err, "failed to get vendors")
		return
	}
	h.respond(w, http.StatusOK, vendors)
}

func (h *Handler) GetVendorHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	vendorID, err := strconv.Atoi(chi.URLParam(r, "vendorId"))
	if err != nil || vendorID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid vendorId")
		return
	}

	vendor, err := h.Store.GetVendor(r.Context(), vendorID)
	if err != nil {
		h.storeError(w, err, "failed to get vendor")
		return
	}
	// Вендор видит только собственную запись
	if identity.Role == models.RoleVendor && vendor.UserID != identity.ID {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	h.respond(w, http.StatusOK, vendor)
}

// EditVendorHandler — частичное обновление, админ или сам вендор
func (h *Handler) EditVendorHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	vendorID, err := strconv.Atoi(chi.URLParam(r, "vendorId"))
	if err != nil || vendorID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid vendorId")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	defer r.Body.Close()

	var input struct {
		CompanyName  *string `json:"companyName"`
		ContactEmail *string `json:"contactEmail"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	vendor, err := h.Store.GetVendor(r.Context(), vendorID)
	if err != nil {
		h.storeError(w, err, "failed to get vendor")
		return
	}
	if identity.Role != models.RoleAdmin && vendor.UserID != identity.ID {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	if input.CompanyName != nil {
		if *input.CompanyName == "" || len(*input.CompanyName) > 150 {
			h.respondError(w, http.StatusBadRequest, "companyName is required and max length 150")
			return
		}
		vendor.CompanyName = *input.CompanyName
	}
	if input.ContactEmail != nil {
		if *input.ContactEmail != "" && !strings.Contains(*input.ContactEmail, "@") {
			h.respondError(w, http.StatusBadRequest, "invalid contactEmail")
			return
		}
		vendor.ContactEmail = *input.ContactEmail
	}

	if err := h.Store.UpdateVendor(r.Context(), vendor); err != nil {
		h.storeError(w, err, "failed to update vendor")
		return
	}

	h.audit(r, identity.ID, "update_vendor", "updated vendor "+strconv.Itoa(vendor.ID))
	h.respond(w, http.StatusOK, vendor)
}

func (h *Handler) DeleteVendorHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	vendorID, err := strconv.Atoi(chi.URLParam(r, "vendorId"))
	if err != nil || vendorID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid vendorId")
		return
	}

	if err := h.Store.DeleteVendor(r.Context(), vendorID); err != nil {
		h.storeError(w, err, "failed to delete vendor")
		return
	}

	h.audit(r, identity.ID, "delete_vendor", "deleted vendor "+strconv.Itoa(vendorID))
	h.respond(w, http.StatusOK, map[string]int{"deleted": vendorID})
}

// GetVendorConsultantsHandler возвращает консультантов, закреплённых за вендором
func (h *Handler) GetVendorConsultantsHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	vendorID, err := strconv.Atoi(chi.URLParam(r, "vendorId"))
	if err != nil || vendorID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid vendorId")
		return
	}

	vendor, err := h.Store.GetVendor(r.Context(), vendorID)
	if err != nil {
		h.storeError(w, err, "failed to get vendor")
		return
	}
	switch identity.Role {
	case models.RoleAdmin, models.RoleManager:
	case models.RoleVendor:
		if vendor.UserID != identity.ID {
			h.respondError(w, http.StatusForbidden, "forbidden")
			return
		}
	default:
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	consultants, err := h.Store.GetVendorConsultants(r.Context(), vendor.UserID)
	if err != nil {
		h.storeError(w, err, "failed to get consultants")
		return
	}
	h.respond(w, http.StatusOK, consultants)
}
