package controller

import (
	"bytes"
	"cafes/form"
	"cafes/model"
	"cafes/repository"
	"cafes/utils"
	"cafes/view"
	"context"
	"errors"
	"github.com/gin-gonic/gin"
	"log"
	"net/http"
	"net/url"
)

const (
	maxUploadSize = 5 << 20
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const duplicateNameMessage = "A cafe with this name already exists."

// CafeStore is the persistence the controller needs.
type CafeStore interface {
	ListAll(ctx context.Context) ([]model.Cafe, error)
	Insert(ctx context.Context, cafe *model.Cafe) error
	DeleteByName(ctx context.Context, name string) (bool, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Currency     string
	CSRFEnabled  bool
	SecureCookie bool
}

type CafeController struct {
	store CafeStore
	csrf  *utils.CSRF
	opts  Options
}

func NewCafeController(store CafeStore, csrf *utils.CSRF, opts Options) *CafeController {
	return &CafeController{store: store, csrf: csrf, opts: opts}
}

func (cc *CafeController) Home(c *gin.Context) {
	cafes, err := cc.store.ListAll(c.Request.Context())
	if err != nil {
		cc.fail(c, err, "Failed to fetch cafes")
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"Cafes": cafes})
}

func (cc *CafeController) ShowAddForm(c *gin.Context) {
	cc.renderAdd(c, &form.NewCafe{}, form.Errors{})
}

func (cc *CafeController) AddCafe(c *gin.Context) {
	var f form.NewCafe
	errs, err := cc.bind(c, &f)
	if err != nil {
		cc.fail(c, err, "Failed to read the submitted form")
		return
	}
	if !errs.Empty() {
		cc.renderAdd(c, &f, errs)
		return
	}

	cafe := f.ToCafe(cc.opts.Currency)
	if err := cc.store.Insert(c.Request.Context(), &cafe); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			errs.Add("name", duplicateNameMessage)
			cc.renderAdd(c, &f, errs)
			return
		}
		cc.fail(c, err, "Failed to save cafe")
		return
	}

	log.Printf("Added %s (id=%d)", cafe, cafe.ID)
	c.Redirect(http.StatusFound, "/")
}

func (cc *CafeController) ShowDeleteForm(c *gin.Context) {
	cc.renderDelete(c, &form.DeleteCafe{}, form.Errors{})
}

func (cc *CafeController) DeleteCafe(c *gin.Context) {
	var f form.DeleteCafe
	errs, err := cc.bind(c, &f)
	if err != nil {
		cc.fail(c, err, "Failed to read the submitted form")
		return
	}
	if !errs.Empty() {
		cc.renderDelete(c, &f, errs)
		return
	}

	deleted, err := cc.store.DeleteByName(c.Request.Context(), f.Name)
	if err != nil {
		cc.fail(c, err, "Failed to delete cafe")
		return
	}
	if deleted {
		log.Printf("Deleted cafe %q", f.Name)
	} else {
		log.Printf("No cafe named %q, nothing deleted", f.Name)
	}
	c.Redirect(http.StatusFound, "/")
}

func (cc *CafeController) Health(c *gin.Context) {
	if err := cc.store.Ping(c.Request.Context()); err != nil {
		c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (cc *CafeController) ExportExcel(c *gin.Context) {
	cafes, err := cc.store.ListAll(c.Request.Context())
	if err != nil {
		cc.fail(c, err, "Failed to fetch cafes")
		return
	}

	var buf bytes.Buffer
	if err := utils.WriteCafes(&buf, cafes); err != nil {
		cc.fail(c, err, "Failed to build spreadsheet")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cafes.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

// bind parses the posted body into dst and collects token and validation
// errors. A non-nil error means the body itself could not be read.
func (cc *CafeController) bind(c *gin.Context, dst form.Schema) (form.Errors, error) {
	values, err := postedValues(c)
	if err != nil {
		return nil, err
	}

	errs := form.Errors{}
	if err := cc.checkToken(c, values); err != nil {
		errs.Add(form.CSRFField, csrfMessage(err))
	}
	values = form.StripCurrency(values, cc.opts.Currency)
	for field, msgs := range form.FromValidation(form.Decode(values, dst), dst) {
		for _, m := range msgs {
			errs.Add(field, m)
		}
	}
	return errs, nil
}

func (cc *CafeController) checkToken(c *gin.Context, values url.Values) error {
	if !cc.opts.CSRFEnabled {
		return nil
	}
	clientID, _ := c.Cookie(utils.CSRFCookie)
	return cc.csrf.ValidateToken(values.Get(form.CSRFField), clientID)
}

// formToken returns a token for the client's CSRFCookie, setting the cookie
// first if the client has none.
func (cc *CafeController) formToken(c *gin.Context) (string, error) {
	clientID, err := c.Cookie(utils.CSRFCookie)
	if err != nil || clientID == "" {
		clientID = utils.NewClientID()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(utils.CSRFCookie, clientID, 0, "/", "", cc.opts.SecureCookie, true)
	}
	return cc.csrf.GenerateToken(clientID)
}

func postedValues(c *gin.Context) (url.Values, error) {
	err := c.Request.ParseMultipartForm(maxUploadSize)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	return c.Request.PostForm, nil
}

func (cc *CafeController) renderAdd(c *gin.Context, f *form.NewCafe, errs form.Errors) {
	cc.renderForm(c, "add.html", view.FormPage{
		Title:  "Add a new cafe",
		Action: "/add",
		Fields: form.Fields(f, errs),
	}, errs)
}

func (cc *CafeController) renderDelete(c *gin.Context, f *form.DeleteCafe, errs form.Errors) {
	cc.renderForm(c, "delete.html", view.FormPage{
		Title:  "Delete a cafe",
		Action: "/delete",
		Fields: form.Fields(f, errs),
	}, errs)
}

func (cc *CafeController) renderForm(c *gin.Context, name string, page view.FormPage, errs form.Errors) {
	token, err := cc.formToken(c)
	if err != nil {
		cc.fail(c, err, "Failed to prepare form")
		return
	}
	page.CSRFToken = token
	page.FormErrors = formLevelErrors(errs)
	c.HTML(http.StatusOK, name, page)
}

// formLevelErrors returns messages that do not belong to a visible input.
func formLevelErrors(errs form.Errors) []string {
	var out []string
	out = append(out, errs.Get(form.CSRFField)...)
	out = append(out, errs.Get("")...)
	return out
}

func csrfMessage(err error) string {
	switch {
	case errors.Is(err, utils.ErrTokenMissing):
		return "The CSRF token is missing."
	case errors.Is(err, utils.ErrTokenExpired):
		return "The CSRF token has expired."
	case errors.Is(err, utils.ErrTokenForeign):
		return "The CSRF tokens do not match."
	default:
		return "The CSRF token is invalid."
	}
}

func (cc *CafeController) fail(c *gin.Context, err error, message string) {
	c.Error(err)
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": message})
}
