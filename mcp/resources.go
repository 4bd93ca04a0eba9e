package mcp

// Resource describes a single addressable resource as advertised by
// resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate describes a URI template that expands to a family of
// resources, as advertised by resources/templates/list.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ListResourcesParams is the resources/list request payload.
type ListResourcesParams struct {
	Meta   Meta   `json:"_meta,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (ListResourcesParams) Method() string { return MethodListResources }

// ListResourcesResult is the resources/list response.
type ListResourcesResult struct {
	Meta       Meta       `json:"_meta,omitempty"`
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ListResourceTemplatesParams is the resources/templates/list request.
type ListResourceTemplatesParams struct {
	Meta   Meta   `json:"_meta,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (ListResourceTemplatesParams) Method() string { return MethodListResourceTemplates }

// ListResourceTemplatesResult is the resources/templates/list response.
type ListResourceTemplatesResult struct {
	Meta              Meta               `json:"_meta,omitempty"`
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor,omitempty"`
}

// ReadResourceParams is the resources/read request payload.
type ReadResourceParams struct {
	Meta Meta   `json:"_meta,omitempty"`
	URI  string `json:"uri"`
}

func (ReadResourceParams) Method() string { return MethodReadResource }

// ReadResourceResult is the resources/read response.
type ReadResourceResult struct {
	Meta     Meta              `json:"_meta,omitempty"`
	Contents []ResourceContent `json:"contents"`
}

// SubscribeResourceParams is the resources/subscribe request payload.
type SubscribeResourceParams struct {
	Meta Meta   `json:"_meta,omitempty"`
	URI  string `json:"uri"`
}

func (SubscribeResourceParams) Method() string { return MethodSubscribeResource }

// UnsubscribeResourceParams is the resources/unsubscribe request payload.
type UnsubscribeResourceParams struct {
	Meta Meta   `json:"_meta,omitempty"`
	URI  string `json:"uri"`
}

func (UnsubscribeResourceParams) Method() string { return MethodUnsubscribeResource }

// ResourceUpdatedParams is the payload of
// notifications/resources/updated, sent to subscribers of a URI.
type ResourceUpdatedParams struct {
	Meta Meta   `json:"_meta,omitempty"`
	URI  string `json:"uri"`
}

func (ResourceUpdatedParams) Method() string { return MethodNotificationResourceUpdated }

// ResourceListChangedParams is the (empty) payload of
// notifications/resources/list_changed.
type ResourceListChangedParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (ResourceListChangedParams) Method() string { return MethodNotificationResourcesListChanged }
