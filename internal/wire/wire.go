// Package wire defines the JSON shapes exchanged between the sync client and
// the record server: typed field-map records, change cursors, subscriptions,
// shares and push notifications. Both sides marshal exactly these structs so
// the protocol lives in one place.
package wire

// Scope names one of the two logical databases a record can be reached
// through. Every record is stored once; scope is the viewpoint of the caller.
type Scope string

const (
	// ScopePrivate covers records the actor owns.
	ScopePrivate Scope = "private"
	// ScopeShared covers records other actors shared with the caller.
	ScopeShared Scope = "shared"
)

// Token is an opaque change cursor issued by the server. The zero value means
// "from the beginning of the change stream".
type Token string

// FieldKind discriminates the value stored in a Field.
type FieldKind string

const (
	FieldString    FieldKind = "string"
	FieldAsset     FieldKind = "asset"
	FieldReference FieldKind = "reference"
)

// Field is one typed value in a record's field map. Exactly one of the value
// members is meaningful, selected by Kind. Assets carry a storage key into
// the blob store, never inline bytes.
type Field struct {
	Kind      FieldKind `json:"kind"`
	String    string    `json:"string,omitempty"`
	Asset     string    `json:"asset,omitempty"`
	Reference string    `json:"reference,omitempty"`
}

// StringField builds a string-valued field.
func StringField(v string) Field { return Field{Kind: FieldString, String: v} }

// AssetField builds an externally addressed asset field from a storage key.
func AssetField(key string) Field { return Field{Kind: FieldAsset, Asset: key} }

// ReferenceField builds a record-reference field from a record name.
func ReferenceField(name string) Field { return Field{Kind: FieldReference, Reference: name} }

// Record is the remote representation of one record: a typed key-value field
// mapping plus server-managed metadata. Name, Owner, Shared and Version are
// assigned by the server and echoed back on every save.
type Record struct {
	Name    string           `json:"name,omitempty"`
	Zone    string           `json:"zone"`
	Type    string           `json:"type"`
	Owner   string           `json:"owner,omitempty"`
	Shared  bool             `json:"shared,omitempty"`
	Version int64            `json:"version,omitempty"`
	Deleted bool             `json:"deleted,omitempty"`
	Fields  map[string]Field `json:"fields"`
}

// QueryOp selects the predicate operator.
type QueryOp string

const (
	QueryEquals   QueryOp = "eq"
	QueryContains QueryOp = "contains"
)

// Query is a single-field predicate over records of one type.
type Query struct {
	Type  string  `json:"type"`
	Field string  `json:"field"`
	Op    QueryOp `json:"op"`
	Value string  `json:"value"`
}

// DatabaseChangesPage is one page of database-level changes: the zones that
// contain records changed since the presented token. More signals that the
// server has further pages the caller must drain before the new token is
// considered caught up.
type DatabaseChangesPage struct {
	ChangedZones []string `json:"changed_zones"`
	Token        Token    `json:"token"`
	More         bool     `json:"more"`
}

// ZoneChangesPage is one page of record-level changes inside a zone.
type ZoneChangesPage struct {
	Records      []*Record `json:"records"`
	DeletedNames []string  `json:"deleted_names"`
	Token        Token     `json:"token"`
	More         bool      `json:"more"`
}

// SubscriptionKind distinguishes per-type query subscriptions from
// whole-database subscriptions.
type SubscriptionKind string

const (
	SubscriptionQuery    SubscriptionKind = "query"
	SubscriptionDatabase SubscriptionKind = "database"
)

// Subscription registers interest in changes. IDs are deterministic and
// derived from the schema so re-registration is idempotent on the server.
type Subscription struct {
	ID         string           `json:"id"`
	Kind       SubscriptionKind `json:"kind"`
	Scope      Scope            `json:"scope"`
	RecordType string           `json:"record_type,omitempty"`
	Silent     bool             `json:"silent"`
}

// SharePermission is the public permission level granted by a share.
type SharePermission string

const (
	PermissionReadOnly  SharePermission = "read-only"
	PermissionReadWrite SharePermission = "read-write"
)

// Share is the ACL object granting other actors access to a root record and
// its zone. URL is assigned by the server on creation.
type Share struct {
	RecordName string          `json:"record_name"`
	Title      string          `json:"title"`
	Permission SharePermission `json:"permission"`
	URL        string          `json:"url,omitempty"`
}

// ShareMetadata describes an incoming share as delivered by push.
type ShareMetadata struct {
	RootRecordName string `json:"root_record_name"`
}

// ChangeKind describes what happened to a record in a query notification.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// NotificationKind discriminates push notification payloads.
type NotificationKind string

const (
	NotifyQuery    NotificationKind = "query"
	NotifyDatabase NotificationKind = "database"
	NotifyShare    NotificationKind = "share"
)

// QueryNotification reports a single record change matching a query
// subscription. Silent: it carries a wake-up signal only, no visible alert.
type QueryNotification struct {
	RecordName string     `json:"record_name"`
	Scope      Scope      `json:"scope"`
	Change     ChangeKind `json:"change"`
}

// DatabaseNotification reports that something changed in the given scope.
type DatabaseNotification struct {
	Scope Scope `json:"scope"`
}

// Notification is the envelope pushed over the notification channel. Exactly
// one payload member is set, selected by Kind.
type Notification struct {
	Kind     NotificationKind      `json:"kind"`
	Query    *QueryNotification    `json:"query,omitempty"`
	Database *DatabaseNotification `json:"database,omitempty"`
	Share    *ShareMetadata        `json:"share,omitempty"`
}
