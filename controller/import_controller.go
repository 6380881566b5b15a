package controller

import (
	"cafes/form"
	"cafes/repository"
	"cafes/utils"
	"cafes/view"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"log"
	"net/http"
	"strings"
)

func (cc *CafeController) ShowImportForm(c *gin.Context) {
	cc.renderImport(c, view.ImportPage{})
}

// BulkAddCafes inserts every valid row of an uploaded workbook. Rows that
// fail validation or clash with an existing name are skipped and listed.
func (cc *CafeController) BulkAddCafes(c *gin.Context) {
	page := view.ImportPage{}

	values, err := postedValues(c)
	if err != nil {
		page.FormErrors = append(page.FormErrors, "Upload could not be read (max 5MB).")
		cc.renderImport(c, page)
		return
	}
	if err := cc.checkToken(c, values); err != nil {
		page.FormErrors = append(page.FormErrors, csrfMessage(err))
		cc.renderImport(c, page)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		page.FormErrors = append(page.FormErrors, "Excel file is required.")
		cc.renderImport(c, page)
		return
	}
	if fileHeader.Size > maxUploadSize {
		page.FormErrors = append(page.FormErrors, "File size exceeds 5MB limit.")
		cc.renderImport(c, page)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		cc.fail(c, err, "Unable to open Excel file")
		return
	}
	defer file.Close()

	rows, err := utils.ReadCafeRows(file)
	if err != nil {
		page.FormErrors = append(page.FormErrors, "Failed to read spreadsheet: "+err.Error())
		cc.renderImport(c, page)
		return
	}

	page.Submitted = true
	ctx := c.Request.Context()
	for _, row := range rows {
		var f form.NewCafe
		rowValues := form.StripCurrency(row.Values, cc.opts.Currency)
		if errs := form.FromValidation(form.Decode(rowValues, &f), &f); !errs.Empty() {
			page.Skipped = append(page.Skipped, view.RowError{Row: row.Number, Reason: describe(errs)})
			continue
		}

		cafe := f.ToCafe(cc.opts.Currency)
		if err := cc.store.Insert(ctx, &cafe); err != nil {
			if errors.Is(err, repository.ErrDuplicateName) {
				page.Skipped = append(page.Skipped, view.RowError{Row: row.Number, Reason: duplicateNameMessage})
				continue
			}
			// Rows before this one stay committed; say how far we got.
			c.Error(err)
			page.FormErrors = append(page.FormErrors, fmt.Sprintf("Import stopped at row %d: failed to save cafe.", row.Number))
			log.Printf("Import stopped at row %d after %d cafe(s): %v", row.Number, page.Imported, err)
			cc.renderImportStatus(c, http.StatusInternalServerError, page)
			return
		}
		page.Imported++
	}

	log.Printf("Imported %d cafe(s), skipped %d row(s)", page.Imported, len(page.Skipped))
	cc.renderImport(c, page)
}

func (cc *CafeController) renderImport(c *gin.Context, page view.ImportPage) {
	cc.renderImportStatus(c, http.StatusOK, page)
}

func (cc *CafeController) renderImportStatus(c *gin.Context, status int, page view.ImportPage) {
	token, err := cc.formToken(c)
	if err != nil {
		cc.fail(c, err, "Failed to prepare form")
		return
	}
	page.CSRFToken = token
	c.HTML(status, "import.html", page)
}

func describe(errs form.Errors) string {
	var parts []string
	for _, col := range utils.SheetColumns {
		for _, msg := range errs.Get(col) {
			parts = append(parts, fmt.Sprintf("%s: %s", col, msg))
		}
	}
	for _, msg := range errs.Get("") {
		parts = append(parts, msg)
	}
	return strings.Join(parts, " ")
}
