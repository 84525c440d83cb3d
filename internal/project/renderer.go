// Package project renders the Talend project artifacts that accompany a
// generated .item file: the per-job .properties descriptor and the
// project-level talend.project file.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// Talend product constants stamped into generated artifacts.
const (
	ProductVersion  = "8.0.1.20250218_0945-patch"
	ProductFullname = "Talend Cloud Data Fabric"
	ProjectType     = "DQ"

	ItemsRelationVersion = ""
	MigrationTaskClass   = "org.talend.repository.model.migration.CheckProductVersionMigrationTask"
	MigrationBreaks      = "7.1.0"
	MigrationVersion     = "7.1.1"

	AuthorLogin = "etl.migrator@local"

	// JobVersion is the fixed version Talend expects in job metadata.
	JobVersion = "0.1"
)

// ProjectProductVersion is the fullname-version pair stamped into
// talend.project.
const ProjectProductVersion = ProductFullname + "-" + ProductVersion

var (
	versionSuffixRe   = regexp.MustCompile(`_?\d+\.\d+$`)
	jobNameSanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	leadingSemverRe   = regexp.MustCompile(`^\d+\.\d+\.\d+`)
)

// SanitizeJobName normalizes a job name for use as a file basename and
// Talend label: spaces and slashes become underscores, trailing version
// suffixes are stripped, and everything outside [a-zA-Z0-9_] is removed.
func SanitizeJobName(name string) string {
	s := strings.NewReplacer(" ", "_", "/", "_", `\`, "_").Replace(name)
	s = versionSuffixRe.ReplaceAllString(s, "")
	s = jobNameSanitizeRe.ReplaceAllString(s, "")

	if s == "" {
		return "UnknownJob"
	}

	return s
}

// CheckProductVersion verifies that the stamped product version satisfies
// the migration task's minimum. A generated project claiming a migration
// floor above its own product version would be rejected on import.
func CheckProductVersion() error {
	raw := leadingSemverRe.FindString(ProductVersion)
	if raw == "" {
		return fmt.Errorf("product version %q has no leading semver", ProductVersion)
	}

	product, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("parsing product version %q: %w", raw, err)
	}

	constraint, err := semver.NewConstraint(">= " + MigrationBreaks)
	if err != nil {
		return fmt.Errorf("parsing migration constraint: %w", err)
	}

	if !constraint.Check(product) {
		return fmt.Errorf("product version %s below migration floor %s", product, MigrationBreaks)
	}

	return nil
}

// Options configures the artifact renderer. The generator functions are
// injectable so tests produce stable output.
type Options struct {
	// NewUUID supplies the random identity source. Nil selects uuid.New.
	NewUUID func() uuid.UUID

	// Now supplies timestamps. Nil selects time.Now.
	Now func() time.Time
}

// Renderer produces .properties and talend.project content.
type Renderer struct {
	newUUID func() uuid.UUID
	now     func() time.Time

	// userID is the shared author reference: the .properties author href
	// and the talend.project author attribute both point at it.
	userID string
}

// NewRenderer creates a renderer. One user ID is minted per renderer so all
// artifacts of a run share their author reference.
func NewRenderer(opts Options) *Renderer {
	r := &Renderer{newUUID: opts.NewUUID, now: opts.Now}
	if r.newUUID == nil {
		r.newUUID = uuid.New
	}

	if r.now == nil {
		r.now = time.Now
	}

	id := r.newUUID()
	r.userID = "_" + strings.ReplaceAll(id.String(), "-", "")

	return r
}

// UserID returns the shared author identifier.
func (r *Renderer) UserID() string { return r.userID }

func (r *Renderer) talendID() string {
	return talendIDFrom(r.newUUID())
}

func (r *Renderer) hexID() string {
	return "_" + strings.ReplaceAll(r.newUUID().String(), "-", "")
}

// timestamp renders the ISO-8601 form with a +0000 zone Talend expects.
func (r *Renderer) timestamp() string {
	return r.now().UTC().Format("2006-01-02T15:04:05.000") + "+0000"
}

var propertiesTemplate = template.Must(template.New("properties").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<xmi:XMI xmi:version="2.0" xmlns:xmi="http://www.omg.org/XMI" xmlns:TalendProperties="http://www.talend.org/properties">
  <TalendProperties:Property xmi:id="{{.PropertyXMIID}}" id="{{.PropertyID}}" version="{{.Version}}" label="{{.Label}}" purpose="" description="" statusCode="" item="{{.ItemID}}" displayName="{{.DisplayName}}">
    <author href="../../talend.project#{{.UserID}}"/>
    <additionalProperties xmi:id="{{.CreatedFullnameID}}" key="created_product_fullname" value="{{.ProductFullname}}"/>
    <additionalProperties xmi:id="{{.CreatedVersionID}}" key="created_product_version" value="{{.ProductVersion}}"/>
    <additionalProperties xmi:id="{{.CreatedDateID}}" key="created_date" value="{{.CreatedDate}}"/>
    <additionalProperties xmi:id="{{.ModifiedFullnameID}}" key="modified_product_fullname" value="{{.ProductFullname}}"/>
    <additionalProperties xmi:id="{{.ModifiedVersionID}}" key="modified_product_version" value="{{.ProductVersion}}"/>
    <additionalProperties xmi:id="{{.ModifiedDateID}}" key="modified_date" value="{{.ModifiedDate}}"/>
    <additionalProperties xmi:id="{{.ItemKeyID}}" key="item_key" value="{{.ItemKey}}"/>
  </TalendProperties:Property>
  <TalendProperties:ItemState xmi:id="{{.ItemStateID}}" path=""/>
  <TalendProperties:ProcessItem xmi:id="{{.ItemID}}" property="{{.PropertyID}}">
    <process href="{{.ProcessHref}}"/>
  </TalendProperties:ProcessItem>
</xmi:XMI>
`))

// RenderProperties produces the .properties descriptor for a job. The
// returned basename (sanitized job name) is what the .item and .properties
// files must be named after.
func (r *Renderer) RenderProperties(jobName string) (content, basename string, err error) {
	basename = SanitizeJobName(jobName)
	timestamp := r.timestamp()

	keySource := r.newUUID()
	itemKey := sha256.Sum256(keySource[:])

	data := map[string]string{
		"PropertyXMIID":      r.talendID(),
		"PropertyID":         r.talendID(),
		"ItemID":             r.talendID(),
		"CreatedFullnameID":  r.talendID(),
		"CreatedVersionID":   r.talendID(),
		"CreatedDateID":      r.talendID(),
		"ModifiedFullnameID": r.talendID(),
		"ModifiedVersionID":  r.talendID(),
		"ModifiedDateID":     r.talendID(),
		"ItemKeyID":          r.talendID(),
		"ItemStateID":        r.talendID(),
		"Label":              basename,
		"DisplayName":        basename,
		"Version":            JobVersion,
		"UserID":             r.userID,
		"ProductFullname":    ProductFullname,
		"ProductVersion":     ProductVersion,
		"CreatedDate":        timestamp,
		"ModifiedDate":       timestamp,
		"ItemKey":            hex.EncodeToString(itemKey[:]),
		"ProcessHref":        basename + ".item#/",
	}

	var sb strings.Builder
	if err := propertiesTemplate.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("rendering properties template: %w", err)
	}

	return sb.String(), basename, nil
}

var projectTemplate = template.Must(template.New("project").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<xmi:XMI xmi:version="2.0" xmlns:xmi="http://www.omg.org/XMI" xmlns:TalendProperties="http://www.talend.org/properties">
  <TalendProperties:Project xmi:id="{{.ProjectID}}" label="{{.Label}}" description="" language="java" author="{{.UserID}}" local="true" technicalLabel="{{.TechnicalLabel}}" productVersion="{{.ProductVersion}}" type="{{.ProjectType}}" itemsRelationVersion="{{.ItemsRelationVersion}}">
    <migrationTask xmi:id="{{.MigrationTaskID}}" id="{{.MigrationTaskClass}}" breaks="{{.BreaksVersion}}" version="{{.MigrationVersion}}" status="EXECUTED"/>
  </TalendProperties:Project>
  <TalendProperties:User xmi:id="{{.UserID}}" login="{{.UserLogin}}"/>
</xmi:XMI>
`))

// RenderProject produces the talend.project descriptor.
func (r *Renderer) RenderProject(projectName string) (string, error) {
	if err := CheckProductVersion(); err != nil {
		return "", err
	}

	data := map[string]string{
		"ProjectID":            r.hexID(),
		"Label":                projectName,
		"TechnicalLabel":       strings.ToUpper(projectName),
		"UserID":               r.userID,
		"UserLogin":            AuthorLogin,
		"ProductVersion":       ProjectProductVersion,
		"ProjectType":          ProjectType,
		"ItemsRelationVersion": ItemsRelationVersion,
		"MigrationTaskID":      r.hexID(),
		"MigrationTaskClass":   MigrationTaskClass,
		"BreaksVersion":        MigrationBreaks,
		"MigrationVersion":     MigrationVersion,
	}

	var sb strings.Builder
	if err := projectTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering project template: %w", err)
	}

	return sb.String(), nil
}
