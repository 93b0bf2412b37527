package visibility

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/insights/pkg/embedsdk"
)

// roleEntry is the compiled form of one RoleSpec.
type roleEntry struct {
	hide  []string
	names map[string]struct{} // NFC-normalized hide names
	rules []*rule
}

// Policy maps roles to the visuals they must not see. A Policy is immutable
// and safe for concurrent use.
type Policy struct {
	doc         Document
	order       []Role
	entries     map[Role]*roleEntry
	fingerprint string
	logger      *slog.Logger
}

// DefaultPolicy is the demo dashboard's role configuration.
func DefaultPolicy() *Policy {
	p, err := FromDocument(Document{
		Version: CurrentVersion,
		Roles: []RoleSpec{
			{ID: string(RoleBedUser), Hide: []string{embedsdk.VisualSalesTrend, embedsdk.VisualRevenueDistribution}},
			{ID: string(RoleMonitorUser), Hide: []string{embedsdk.VisualProductPerformance, embedsdk.VisualSalesDetails}},
			{ID: string(RoleBoth), Hide: []string{}},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("visibility: default policy: %v", err))
	}
	return p
}

// NewPolicy builds a policy from a plain role → hidden names mapping.
// Roles are ordered by name.
func NewPolicy(hide map[Role][]string) *Policy {
	roles := make([]Role, 0, len(hide))
	for r := range hide {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	doc := Document{Version: CurrentVersion}
	for _, r := range roles {
		doc.Roles = append(doc.Roles, RoleSpec{ID: string(r), Hide: hide[r]})
	}
	p, err := FromDocument(doc)
	if err != nil {
		// Only rules can fail to compile and this document has none.
		panic(fmt.Sprintf("visibility: %v", err))
	}
	return p
}

// FromDocument compiles a decoded policy document. It does not run schema
// or version checks; Parse does.
func FromDocument(doc Document) (*Policy, error) {
	p := &Policy{
		entries: make(map[Role]*roleEntry, len(doc.Roles)),
		logger:  slog.Default().With("component", "visibility"),
	}

	normalized := Document{Version: doc.Version, Roles: make([]RoleSpec, 0, len(doc.Roles))}
	for _, rs := range doc.Roles {
		role := Role(rs.ID)
		if _, dup := p.entries[role]; dup {
			return nil, fmt.Errorf("%w: duplicate role %q", ErrInvalidDocument, rs.ID)
		}

		entry := &roleEntry{
			hide:  make([]string, 0, len(rs.Hide)),
			names: make(map[string]struct{}, len(rs.Hide)),
		}
		for _, name := range rs.Hide {
			key := norm.NFC.String(name)
			if _, seen := entry.names[key]; seen {
				continue
			}
			entry.names[key] = struct{}{}
			entry.hide = append(entry.hide, name)
		}
		for _, expr := range rs.Rules {
			r, err := compileRule(expr)
			if err != nil {
				return nil, fmt.Errorf("%w: role %q: %w", ErrInvalidDocument, rs.ID, err)
			}
			entry.rules = append(entry.rules, r)
		}

		p.entries[role] = entry
		p.order = append(p.order, role)
		normalized.Roles = append(normalized.Roles, RoleSpec{
			ID:    rs.ID,
			Hide:  entry.hide,
			Rules: append([]string(nil), rs.Rules...),
		})
	}
	p.doc = normalized

	fp, err := fingerprint(normalized)
	if err != nil {
		return nil, err
	}
	p.fingerprint = fp
	return p, nil
}

func fingerprint(doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal policy: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize policy: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// Roles lists the configured roles in declaration order.
func (p *Policy) Roles() []Role {
	return append([]Role(nil), p.order...)
}

// HideList returns the visual names configured for role, or nil.
func (p *Policy) HideList(role Role) []string {
	entry, ok := p.entries[role]
	if !ok {
		return nil
	}
	return append([]string(nil), entry.hide...)
}

// Has reports whether role is configured.
func (p *Policy) Has(role Role) bool {
	_, ok := p.entries[role]
	return ok
}

// Document returns the normalized document the policy was built from.
func (p *Policy) Document() Document {
	return p.doc
}

// Fingerprint is the SHA-256 of the policy's canonical (RFC 8785) JSON form.
func (p *Policy) Fingerprint() string {
	return p.fingerprint
}

// hides reports whether role must not see v. Rule evaluation errors count
// as no match.
func (p *Policy) hides(role Role, v *embedsdk.Visual) bool {
	entry, ok := p.entries[role]
	if !ok {
		return false
	}
	if _, ok := entry.names[norm.NFC.String(v.Name)]; ok {
		return true
	}
	for _, r := range entry.rules {
		hide, err := r.match(v)
		if err != nil {
			p.logger.Warn("hide rule failed", "role", role, "visual", v.Name, "error", err)
			continue
		}
		if hide {
			return true
		}
	}
	return false
}

// Finding is a hide-list entry that matches no visual of a report.
type Finding struct {
	Role   Role   `json:"role"`
	Visual string `json:"visual"`
}

func (f Finding) String() string {
	return fmt.Sprintf("role %s hides %q, which is not in the report", f.Role, f.Visual)
}

// Lint lists hide-list names that match none of visualNames. Apply ignores
// such names; Lint exists so operators can spot typos.
func (p *Policy) Lint(visualNames []string) []Finding {
	present := make(map[string]struct{}, len(visualNames))
	for _, n := range visualNames {
		present[norm.NFC.String(n)] = struct{}{}
	}

	var findings []Finding
	for _, role := range p.order {
		for _, name := range p.entries[role].hide {
			if _, ok := present[norm.NFC.String(name)]; !ok {
				findings = append(findings, Finding{Role: role, Visual: name})
			}
		}
	}
	return findings
}
