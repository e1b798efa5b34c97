package assets

import "github.com/spaghettifunk/leap/engine/renderer/metadata"

// Loader turns an indexed file into a resource. params is loader specific
// and may be nil.
type Loader interface {
	Load(path string, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
