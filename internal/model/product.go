package model

// MaxPrice is the highest price a product can be created with. It keeps cart
// totals far away from int64 overflow.
const MaxPrice int64 = 1_000_000_000_000

type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	ImageURL  string `json:"image_url,omitempty"`
	Available bool   `json:"available"`
}

// NewProduct is what the admin panel sends to the store; the store assigns the id.
type NewProduct struct {
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	ImageURL  string `json:"image_url,omitempty"`
	Available bool   `json:"available"`
}

// ProductForm holds the admin panel input as typed, before validation.
type ProductForm struct {
	Name     string `json:"name" form:"name"`
	Price    string `json:"price" form:"price"`
	ImageURL string `json:"image_url" form:"image_url"`

	// Image is an optional uploaded file; it is sent to the media uploader and
	// replaces ImageURL when present.
	Image     []byte `json:"-" form:"-"`
	ImageName string `json:"-" form:"-"`
}
