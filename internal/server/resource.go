package server

import (
	"context"
	"net/http"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tenantdesk/internal/audit/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
)

// entityRoutes serves the uniform CRUD surface of one entity. The write
// hooks default to the engine and are swapped for the document services on
// quotes, invoices and payments.
type entityRoutes[T any, PT resource.Model[T]] struct {
	name   string
	engine *resource.Engine[T, PT]
	audit  auditdomain.Service

	create func(ctx context.Context, item *T) (*T, error)
	update func(ctx context.Context, id snowflake.ID, payload map[string]any) (*T, error)
	remove func(ctx context.Context, id snowflake.ID) (resource.DeleteResult[T], error)
}

func newEntityRoutes[T any, PT resource.Model[T]](engine *resource.Engine[T, PT], audit auditdomain.Service) *entityRoutes[T, PT] {
	return &entityRoutes[T, PT]{
		name:   engine.Descriptor().Name,
		engine: engine,
		audit:  audit,
		create: engine.Create,
		update: engine.Update,
		remove: engine.SoftDelete,
	}
}

func (r *entityRoutes[T, PT]) register(g *gin.RouterGroup) {
	g.POST("/create", r.Create)
	g.GET("/read/:id", r.Read)
	g.PATCH("/update/:id", r.Update)
	g.DELETE("/delete/:id", r.Delete)
	g.GET("/list", r.List)
	g.GET("/listAll", r.ListAll)
	g.GET("/filter", r.Filter)
	g.GET("/search", r.Search)
}

func (r *entityRoutes[T, PT]) Create(c *gin.Context) {
	item := r.engine.New()
	if err := bindJSON(c, item); err != nil {
		AbortWithError(c, err)
		return
	}
	base := PT(item).GetBase()
	base.ID = 0
	base.TenantID = 0
	base.Removed = false
	base.CreatedBy = nil

	created, err := r.create(c.Request.Context(), item)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id := PT(created).GetBase().ID
	recordAudit(c, r.audit, r.name+".created", r.name, id.String(), nil)
	respond(c, http.StatusCreated, created, r.name+" created successfully")
}

func (r *entityRoutes[T, PT]) Read(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	item, err := r.engine.Read(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, item, r.name+" retrieved successfully")
}

func (r *entityRoutes[T, PT]) Update(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payload, err := decodePayload(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := r.update(c.Request.Context(), id, payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	recordAudit(c, r.audit, r.name+".updated", r.name, id.String(), map[string]any{"fields": payloadKeys(payload)})
	respondOK(c, item, r.name+" updated successfully")
}

func (r *entityRoutes[T, PT]) Delete(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	res, err := r.remove(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if res.AlreadyRemoved {
		respondOK(c, res.Item, r.name+" already removed")
		return
	}

	recordAudit(c, r.audit, r.name+".deleted", r.name, id.String(), nil)
	respondOK(c, res.Item, r.name+" deleted successfully")
}

func (r *entityRoutes[T, PT]) List(c *gin.Context) {
	var req resource.ListRequest
	if err := bindQuery(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	items, page, err := r.engine.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondPage(c, items, page, r.name+" list retrieved successfully")
}

func (r *entityRoutes[T, PT]) ListAll(c *gin.Context) {
	items, err := r.engine.ListAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, items, "all "+r.name+" retrieved successfully")
}

func (r *entityRoutes[T, PT]) Filter(c *gin.Context) {
	items, err := r.engine.Filter(c.Request.Context(), c.Query("filter"), c.Query("equal"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, items, "filtered "+r.name+" retrieved successfully")
}

func (r *entityRoutes[T, PT]) Search(c *gin.Context) {
	items, err := r.engine.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, items, "search results for "+r.name)
}

func payloadKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func recordAudit(c *gin.Context, svc auditdomain.Service, action, targetType, targetID string, metadata map[string]any) {
	if svc == nil {
		return
	}
	ctx := c.Request.Context()
	scope, err := tenantctx.FromContext(ctx)
	if err != nil {
		return
	}
	svc.Record(ctx, scope, auditdomain.Entry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	})
}
