package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMountBookWishlistRoutes_NoDuplicateBooksMount(t *testing.T) {
	root := chi.NewRouter()
	root.Mount("/books", chi.NewRouter())

	okHandler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.Fatalf("registering wishlist routes panicked: %v", rec)
			}
		}()
		mountBookWishlistRoutes(root, func(next http.Handler) http.Handler { return next }, okHandler, okHandler)
	}()

	t.Run("add route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/books/123/wishlist", nil)
		rr := httptest.NewRecorder()
		root.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("remove route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/books/123/wishlist", nil)
		rr := httptest.NewRecorder()
		root.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
	})
}
