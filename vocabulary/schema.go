// Package vocabulary provides the activity-streams vocabulary used by the pipeline.
package vocabulary

// XML namespaces recognized in feed documents
const (
	// AtomNamespace is the default namespace of Atom feed documents.
	AtomNamespace = "http://www.w3.org/2005/Atom"

	// ActivityStreamsNamespace is the extension namespace carrying
	// verb and object-type elements on feed entries.
	ActivityStreamsNamespace = "http://activitystrea.ms/spec/1.0/"
)

// SchemaBase is the base IRI of the activity-streams schema vocabulary.
const SchemaBase = "http://activitystrea.ms/schema/1.0"

// Verb IRIs
const (
	VerbPost     = SchemaBase + "/post"
	VerbShare    = SchemaBase + "/share"
	VerbFollow   = SchemaBase + "/follow"
	VerbFavorite = SchemaBase + "/favorite"
	VerbUpdate   = SchemaBase + "/update"
	VerbTag      = SchemaBase + "/tag"
)

// Object-type IRIs
const (
	ObjectTypeArticle  = SchemaBase + "/article"
	ObjectTypeNote     = SchemaBase + "/note"
	ObjectTypePhoto    = SchemaBase + "/photo"
	ObjectTypeVideo    = SchemaBase + "/video"
	ObjectTypeBookmark = SchemaBase + "/bookmark"
	ObjectTypePerson   = SchemaBase + "/person"
	ObjectTypeComment  = SchemaBase + "/comment"
)

// Defaults applied when an entry carries no activity-streams extension
const (
	DefaultVerb       = VerbPost
	DefaultObjectType = ObjectTypeArticle
)

// verbs maps short verb names to IRIs. Initialized once, never mutated.
var verbs = map[string]string{
	"post":     VerbPost,
	"share":    VerbShare,
	"follow":   VerbFollow,
	"favorite": VerbFavorite,
	"update":   VerbUpdate,
	"tag":      VerbTag,
}

// objectTypes maps short object-type names to IRIs. Initialized once, never mutated.
var objectTypes = map[string]string{
	"article":  ObjectTypeArticle,
	"note":     ObjectTypeNote,
	"photo":    ObjectTypePhoto,
	"video":    ObjectTypeVideo,
	"bookmark": ObjectTypeBookmark,
	"person":   ObjectTypePerson,
	"comment":  ObjectTypeComment,
}

// VerbIRI returns the IRI for a short verb name, or the default post verb
// when the name is unknown.
func VerbIRI(name string) string {
	if iri, ok := verbs[name]; ok {
		return iri
	}
	return DefaultVerb
}

// ObjectTypeIRI returns the IRI for a short object-type name, or the default
// article type when the name is unknown.
func ObjectTypeIRI(name string) string {
	if iri, ok := objectTypes[name]; ok {
		return iri
	}
	return DefaultObjectType
}
