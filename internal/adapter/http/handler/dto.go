package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/usecase"
)

// flexString accepts a JSON string or number. Form-style clients send ids
// and prices either way.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = flexString(n.String())
	return nil
}

func (s *flexString) ptr() *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

type createAnnonceRequest struct {
	TypeAnnonceID     flexString `json:"typeAnnonceId"`
	TypeAnnonceName   string     `json:"typeAnnonceName"`
	CategoryID        flexString `json:"categoryId"`
	CategoryName      string     `json:"categoryName"`
	SubcategoryID     flexString `json:"subcategoryId"`
	SubcategoryName   string     `json:"subcategoryName"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Price             flexString `json:"price"`
	RegionID          flexString `json:"regionId"`
	CityID            flexString `json:"cityId"`
	DirectNegotiation bool       `json:"directNegotiation"`
	IsPublished       *bool      `json:"isPublished"`
	ClientRef         string     `json:"clientRef"`
}

func (r createAnnonceRequest) toInput() usecase.CreateListingInput {
	return usecase.CreateListingInput{
		TypeAnnonceID:     string(r.TypeAnnonceID),
		TypeAnnonceName:   r.TypeAnnonceName,
		CategoryID:        string(r.CategoryID),
		CategoryName:      r.CategoryName,
		SubcategoryID:     string(r.SubcategoryID),
		SubcategoryName:   r.SubcategoryName,
		Title:             r.Title,
		Description:       r.Description,
		Price:             string(r.Price),
		RegionID:          string(r.RegionID),
		CityID:            string(r.CityID),
		DirectNegotiation: r.DirectNegotiation,
		IsPublished:       r.IsPublished,
		ClientRef:         r.ClientRef,
	}
}

// updateAnnonceRequest is a patch. Absent or null fields are left unchanged;
// an empty string clears an optional field.
type updateAnnonceRequest struct {
	TypeAnnonceID     *flexString `json:"typeAnnonceId"`
	TypeAnnonceName   *string     `json:"typeAnnonceName"`
	CategoryID        *flexString `json:"categoryId"`
	CategoryName      *string     `json:"categoryName"`
	SubcategoryID     *flexString `json:"subcategoryId"`
	SubcategoryName   *string     `json:"subcategoryName"`
	Title             *string     `json:"title"`
	Description       *string     `json:"description"`
	Price             *flexString `json:"price"`
	RegionID          *flexString `json:"regionId"`
	CityID            *flexString `json:"cityId"`
	DirectNegotiation *bool       `json:"directNegotiation"`
	IsPublished       *bool       `json:"isPublished"`
}

func (r updateAnnonceRequest) toInput() usecase.UpdateListingInput {
	return usecase.UpdateListingInput{
		TypeAnnonceID:     r.TypeAnnonceID.ptr(),
		TypeAnnonceName:   r.TypeAnnonceName,
		CategoryID:        r.CategoryID.ptr(),
		CategoryName:      r.CategoryName,
		SubcategoryID:     r.SubcategoryID.ptr(),
		SubcategoryName:   r.SubcategoryName,
		Title:             r.Title,
		Description:       r.Description,
		Price:             r.Price.ptr(),
		RegionID:          r.RegionID.ptr(),
		CityID:            r.CityID.ptr(),
		DirectNegotiation: r.DirectNegotiation,
		IsPublished:       r.IsPublished,
	}
}

type favoriteRequest struct {
	IsFavorite *bool `json:"isFavorite"`
}

type annonceResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	TypeAnnonceID     string    `json:"typeAnnonceId"`
	TypeAnnonceName   string    `json:"typeAnnonceName"`
	CategoryID        *string   `json:"categoryId"`
	CategoryName      *string   `json:"categoryName"`
	SubcategoryID     *string   `json:"subcategoryId"`
	SubcategoryName   *string   `json:"subcategoryName"`
	Title             *string   `json:"title"`
	Description       string    `json:"description"`
	Price             *float64  `json:"price"`
	RegionID          *string   `json:"regionId"`
	CityID            *string   `json:"cityId"`
	DirectNegotiation bool      `json:"directNegotiation"`
	IsSponsored       bool      `json:"isSponsored"`
	IsPublished       bool      `json:"isPublished"`
	Status            string    `json:"status"`
	HaveImage         bool      `json:"haveImage"`
	FirstImagePath    *string   `json:"firstImagePath"`
	IsFavorite        bool      `json:"isFavorite"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toAnnonceResponse(l *domain.Listing, isFavorite bool) annonceResponse {
	return annonceResponse{
		ID:                l.ID,
		UserID:            l.UserID,
		TypeAnnonceID:     l.TypeAnnonceID,
		TypeAnnonceName:   l.TypeAnnonceName,
		CategoryID:        l.CategoryID,
		CategoryName:      l.CategoryName,
		SubcategoryID:     l.SubcategoryID,
		SubcategoryName:   l.SubcategoryName,
		Title:             l.Title,
		Description:       l.Description,
		Price:             l.Price,
		RegionID:          l.RegionID,
		CityID:            l.CityID,
		DirectNegotiation: l.DirectNegotiation,
		IsSponsored:       l.IsSponsored,
		IsPublished:       l.IsPublished,
		Status:            string(l.Status),
		HaveImage:         l.HaveImage,
		FirstImagePath:    l.FirstImagePath,
		IsFavorite:        isFavorite,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

type pageResponse struct {
	Annonces    []annonceResponse `json:"annonces"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	TotalCount  int64             `json:"totalCount"`
}

func toPageResponse(p *domain.Page) pageResponse {
	annonces := make([]annonceResponse, 0, len(p.Items))
	for _, item := range p.Items {
		annonces = append(annonces, toAnnonceResponse(item.Listing, item.IsFavorite))
	}
	return pageResponse{
		Annonces:    annonces,
		TotalPages:  p.TotalPages,
		CurrentPage: p.Page,
		TotalCount:  p.TotalCount,
	}
}

type uploadedImageResponse struct {
	URL    string `json:"url"`
	IsMain bool   `json:"isMain"`
}

type uploadResponse struct {
	OK             bool                    `json:"ok"`
	Images         []uploadedImageResponse `json:"images"`
	FirstImagePath *string                 `json:"firstImagePath"`
}

type imagePathResponse struct {
	ImagePath string `json:"imagePath"`
}

type imagesResponse struct {
	HaveImage      bool                `json:"haveImage"`
	FirstImagePath *string             `json:"firstImagePath"`
	Images         []imagePathResponse `json:"images"`
}

type deleteImageResponse struct {
	OK             bool     `json:"ok"`
	Removed        string   `json:"removed"`
	Remaining      []string `json:"remaining"`
	HaveImage      bool     `json:"haveImage"`
	FirstImagePath *string  `json:"firstImagePath"`
}
