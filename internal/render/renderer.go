package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/rentflow/leasesign/internal/domain"
)

// legalBasisStatement is printed on every Certificate of Completion.
const legalBasisStatement = "This document was executed using electronic signatures. " +
	"Electronic records and signatures are legally binding under the U.S. ESIGN Act (2000) " +
	"and the Uniform Electronic Transactions Act (UETA). Each signer's identity assertion, " +
	"network evidence and interaction record were captured at the time of signing and are " +
	"reproduced above."

// Renderer produces canonical document HTML. Output is deterministic for
// identical input; the only varying element is the certificate's generated-at
// timestamp, which the caller supplies.
type Renderer struct {
	leaseTmpl    *template.Template
	addendumTmpl *template.Template
	certTmpl     *template.Template
}

// NewRenderer creates a Renderer with the built-in templates
func NewRenderer() *Renderer {
	return &Renderer{
		leaseTmpl:    template.Must(template.New("lease").Parse(leaseTemplate)),
		addendumTmpl: template.Must(template.New("addendum").Parse(addendumTemplate)),
		certTmpl:     template.Must(template.New("certificate").Parse(certificateTemplate)),
	}
}

type signerBlock struct {
	Role        string
	Name        string
	Email       string
	Signed      bool
	SignedAt    string
	Image       template.URL
	Fingerprint string
}

type certSigner struct {
	Role         string
	Name         string
	Email        string
	SignedAt     string
	IPAddress    string
	Location     string
	ViewDuration string
}

type leaseView struct {
	LeaseID     string
	UnitID      string
	StartDate   string
	EndDate     string
	MonthlyRent string
	Terms       string
	Tenants     []signerBlock
	Landlord    signerBlock
}

type addendumView struct {
	AddendumID string
	LeaseID    string
	Title      string
	Content    string
	FileURL    string
	Signers    []signerBlock
	Landlord   signerBlock
}

type certView struct {
	DocumentHash string
	Signers      []certSigner
	LegalBasis   string
	GeneratedAt  string
}

// RenderLease renders the lease document. When every tenant and the landlord
// have signed, a Certificate of Completion is appended; generatedAt is only
// used for the certificate's trailing timestamp.
func (r *Renderer) RenderLease(lease *domain.Lease, generatedAt time.Time) ([]byte, error) {
	view := leaseView{
		LeaseID:     lease.ID,
		UnitID:      lease.UnitID,
		StartDate:   lease.StartDate.Format("January 2, 2006"),
		EndDate:     lease.EndDate.Format("January 2, 2006"),
		MonthlyRent: fmt.Sprintf("%.2f", lease.MonthlyRent),
		Terms:       lease.Terms,
		Landlord:    landlordBlock(lease.LandlordSignedAt, lease.LandlordSignatureData),
	}
	for _, slot := range lease.Tenants {
		view.Tenants = append(view.Tenants, tenantBlock(slot.TenantName, slot.TenantEmail, slot.SignedAt, slot.SignatureData))
	}

	var body bytes.Buffer
	if err := r.leaseTmpl.Execute(&body, view); err != nil {
		return nil, fmt.Errorf("failed to render lease document: %w", err)
	}

	if !lease.FullySigned() {
		return body.Bytes(), nil
	}

	signers := make([]certSigner, 0, len(lease.Tenants)+1)
	for _, slot := range lease.Tenants {
		signers = append(signers, certSignerFrom("Tenant", slot.TenantName, slot.TenantEmail, slot.SignatureData))
	}
	signers = append(signers, certSignerFrom("Landlord",
		landlordName(lease.LandlordSignatureData),
		landlordEmail(lease.LandlordSignatureData),
		lease.LandlordSignatureData,
	))

	return r.appendCertificate(body.Bytes(), signers, generatedAt)
}

// RenderAddendum renders the addendum document, appending a Certificate of
// Completion once all parties including the landlord have signed.
func (r *Renderer) RenderAddendum(addendum *domain.LeaseAddendum, generatedAt time.Time) ([]byte, error) {
	view := addendumView{
		AddendumID: addendum.ID,
		LeaseID:    addendum.LeaseID,
		Title:      addendum.Title,
		Content:    addendum.Content,
		Landlord:   landlordBlock(addendum.LandlordSignedAt, addendum.LandlordSignatureData),
	}
	if addendum.UploadedFileURL != nil {
		view.FileURL = *addendum.UploadedFileURL
	}
	for _, slot := range addendum.Signatures {
		view.Signers = append(view.Signers, tenantBlock(slot.TenantName, slot.TenantEmail, slot.SignedAt, slot.SignatureData))
	}

	var body bytes.Buffer
	if err := r.addendumTmpl.Execute(&body, view); err != nil {
		return nil, fmt.Errorf("failed to render addendum document: %w", err)
	}

	if !addendum.FullySigned() {
		return body.Bytes(), nil
	}

	signers := make([]certSigner, 0, len(addendum.Signatures)+1)
	for _, slot := range addendum.Signatures {
		signers = append(signers, certSignerFrom("Tenant", slot.TenantName, slot.TenantEmail, slot.SignatureData))
	}
	signers = append(signers, certSignerFrom("Landlord",
		landlordName(addendum.LandlordSignatureData),
		landlordEmail(addendum.LandlordSignatureData),
		addendum.LandlordSignatureData,
	))

	return r.appendCertificate(body.Bytes(), signers, generatedAt)
}

// appendCertificate hashes the document body and appends the certificate
// page carrying that hash, so the certificate attests the content above it.
func (r *Renderer) appendCertificate(body []byte, signers []certSigner, generatedAt time.Time) ([]byte, error) {
	view := certView{
		DocumentHash: HashBytes(body),
		Signers:      signers,
		LegalBasis:   legalBasisStatement,
		GeneratedAt:  generatedAt.UTC().Format(time.RFC3339),
	}

	var cert bytes.Buffer
	if err := r.certTmpl.Execute(&cert, view); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}

	return append(body, cert.Bytes()...), nil
}

func tenantBlock(name, email string, signedAt *time.Time, data *domain.SignatureData) signerBlock {
	block := signerBlock{
		Role:  "Tenant",
		Name:  name,
		Email: email,
	}
	if signedAt != nil && data != nil {
		block.Signed = true
		block.SignedAt = signedAt.UTC().Format(time.RFC3339)
		block.Image = template.URL(data.SignatureImage)
		block.Fingerprint = domain.FingerprintDisplayID(data.Fingerprint)
	}
	return block
}

func landlordBlock(signedAt *time.Time, data *domain.SignatureData) signerBlock {
	block := signerBlock{Role: "Landlord"}
	if data != nil {
		block.Name = data.FullName
		block.Email = data.Email
	}
	if signedAt != nil && data != nil {
		block.Signed = true
		block.SignedAt = signedAt.UTC().Format(time.RFC3339)
		block.Image = template.URL(data.SignatureImage)
		block.Fingerprint = domain.FingerprintDisplayID(data.Fingerprint)
	}
	return block
}

func certSignerFrom(role, name, email string, data *domain.SignatureData) certSigner {
	signer := certSigner{
		Role:  role,
		Name:  name,
		Email: email,
	}
	if data != nil {
		signer.SignedAt = data.SignedAt.UTC().Format(time.RFC3339)
		signer.IPAddress = data.IPAddress
		signer.Location = data.Location
		signer.ViewDuration = fmt.Sprintf("%ds", data.TotalViewTimeSeconds)
	}
	return signer
}

func landlordName(data *domain.SignatureData) string {
	if data == nil {
		return ""
	}
	return data.FullName
}

func landlordEmail(data *domain.SignatureData) string {
	if data == nil {
		return ""
	}
	return data.Email
}

const leaseTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Residential Lease Agreement</title></head>
<body>
<h1>Residential Lease Agreement</h1>
<p>Lease ID: {{.LeaseID}}</p>
<p>Unit: {{.UnitID}}</p>
<p>Term: {{.StartDate}} through {{.EndDate}}</p>
<p>Monthly Rent: ${{.MonthlyRent}}</p>
<section class="terms">
<h2>Terms and Conditions</h2>
<div>{{.Terms}}</div>
</section>
<section class="signatures">
<h2>Signatures</h2>
{{range .Tenants}}
<div class="signature-block">
<h3>{{.Role}}: {{.Name}}</h3>
<p>{{.Email}}</p>
{{if .Signed}}
{{if .Image}}<img class="signature-image" src="{{.Image}}" alt="signature">{{end}}
<p>Signed electronically at {{.SignedAt}}</p>
<p>Signature ID: {{.Fingerprint}}</p>
{{else}}
<p class="unsigned">Awaiting signature</p>
{{end}}
</div>
{{end}}
<div class="signature-block">
<h3>{{.Landlord.Role}}{{if .Landlord.Name}}: {{.Landlord.Name}}{{end}}</h3>
{{if .Landlord.Signed}}
{{if .Landlord.Image}}<img class="signature-image" src="{{.Landlord.Image}}" alt="signature">{{end}}
<p>Signed electronically at {{.Landlord.SignedAt}}</p>
<p>Signature ID: {{.Landlord.Fingerprint}}</p>
{{else}}
<p class="unsigned">Awaiting signature</p>
{{end}}
</div>
</section>
</body>
</html>
`

const addendumTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Lease Addendum</title></head>
<body>
<h1>Lease Addendum: {{.Title}}</h1>
<p>Addendum ID: {{.AddendumID}}</p>
<p>Parent Lease: {{.LeaseID}}</p>
<section class="content">
{{if .FileURL}}<p>Attached document: {{.FileURL}}</p>{{else}}<div>{{.Content}}</div>{{end}}
</section>
<section class="signatures">
<h2>Signatures</h2>
{{range .Signers}}
<div class="signature-block">
<h3>{{.Role}}: {{.Name}}</h3>
<p>{{.Email}}</p>
{{if .Signed}}
{{if .Image}}<img class="signature-image" src="{{.Image}}" alt="signature">{{end}}
<p>Signed electronically at {{.SignedAt}}</p>
<p>Signature ID: {{.Fingerprint}}</p>
{{else}}
<p class="unsigned">Awaiting signature</p>
{{end}}
</div>
{{end}}
<div class="signature-block">
<h3>{{.Landlord.Role}}{{if .Landlord.Name}}: {{.Landlord.Name}}{{end}}</h3>
{{if .Landlord.Signed}}
{{if .Landlord.Image}}<img class="signature-image" src="{{.Landlord.Image}}" alt="signature">{{end}}
<p>Signed electronically at {{.Landlord.SignedAt}}</p>
<p>Signature ID: {{.Landlord.Fingerprint}}</p>
{{else}}
<p class="unsigned">Awaiting signature</p>
{{end}}
</div>
</section>
</body>
</html>
`

const certificateTemplate = `<section class="certificate-of-completion">
<h1>Certificate of Completion</h1>
<p>Document hash (SHA-256): {{.DocumentHash}}</p>
<table>
<tr><th>Role</th><th>Name</th><th>Email</th><th>Signed At</th><th>IP Address</th><th>Location</th><th>View Duration</th></tr>
{{range .Signers}}
<tr><td>{{.Role}}</td><td>{{.Name}}</td><td>{{.Email}}</td><td>{{.SignedAt}}</td><td>{{.IPAddress}}</td><td>{{.Location}}</td><td>{{.ViewDuration}}</td></tr>
{{end}}
</table>
<p class="legal-basis">{{.LegalBasis}}</p>
<p class="generated-at">Certificate generated at {{.GeneratedAt}}</p>
</section>
`
