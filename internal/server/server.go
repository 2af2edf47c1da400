package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/citypermits/tripermit/internal/application"
	applicationdomain "github.com/citypermits/tripermit/internal/application/domain"
	"github.com/citypermits/tripermit/internal/assessment"
	assessmentdomain "github.com/citypermits/tripermit/internal/assessment/domain"
	"github.com/citypermits/tripermit/internal/clock"
	"github.com/citypermits/tripermit/internal/complaint"
	complaintdomain "github.com/citypermits/tripermit/internal/complaint/domain"
	"github.com/citypermits/tripermit/internal/config"
	"github.com/citypermits/tripermit/internal/franchise"
	franchisedomain "github.com/citypermits/tripermit/internal/franchise/domain"
	"github.com/citypermits/tripermit/internal/observability"
	"github.com/citypermits/tripermit/internal/particular"
	particulardomain "github.com/citypermits/tripermit/internal/particular/domain"
	"github.com/citypermits/tripermit/internal/payment"
	paymentdomain "github.com/citypermits/tripermit/internal/payment/domain"
	"github.com/citypermits/tripermit/internal/reference"
	referencedomain "github.com/citypermits/tripermit/internal/reference/domain"
	"github.com/citypermits/tripermit/internal/settings"
	settingsdomain "github.com/citypermits/tripermit/internal/settings/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	particular.Module,
	assessment.Module,
	payment.Module,
	franchise.Module,
	application.Module,
	complaint.Module,
	reference.Module,
	settings.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, metrics *observability.Metrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	particularSvc  particulardomain.Service
	assessmentSvc  assessmentdomain.Service
	paymentSvc     paymentdomain.Service
	franchiseSvc   franchisedomain.Service
	applicationSvc applicationdomain.Service
	complaintSvc   complaintdomain.Service
	referenceSvc   referencedomain.Service
	settingsSvc    settingsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	ParticularSvc  particulardomain.Service
	AssessmentSvc  assessmentdomain.Service
	PaymentSvc     paymentdomain.Service
	FranchiseSvc   franchisedomain.Service
	ApplicationSvc applicationdomain.Service
	ComplaintSvc   complaintdomain.Service
	ReferenceSvc   referencedomain.Service
	SettingsSvc    settingsdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		genID:          p.GenID,
		clock:          p.Clock,
		particularSvc:  p.ParticularSvc,
		assessmentSvc:  p.AssessmentSvc,
		paymentSvc:     p.PaymentSvc,
		franchiseSvc:   p.FranchiseSvc,
		applicationSvc: p.ApplicationSvc,
		complaintSvc:   p.ComplaintSvc,
		referenceSvc:   p.ReferenceSvc,
		settingsSvc:    p.SettingsSvc,
	}

	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) now() time.Time {
	return s.clock.Now()
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/particulars", s.ListParticulars)
	api.POST("/particulars", s.CreateParticular)
	api.GET("/particulars/:id", s.GetParticular)
	api.PATCH("/particulars/:id", s.UpdateParticular)
	api.DELETE("/particulars/:id", s.DeleteParticular)

	api.GET("/assessments", s.ListAssessments)
	api.POST("/assessments", s.CreateAssessment)
	api.GET("/assessments/:id", s.GetAssessment)
	api.POST("/assessments/:id/recalculate", s.RecalculateAssessment)
	api.GET("/assessments/:id/payments", s.ListAssessmentPayments)
	api.POST("/payments", s.RecordPayment)

	api.GET("/franchises", s.ListFranchises)
	api.POST("/franchises", s.RegisterFranchise)
	api.GET("/franchises/:id", s.GetFranchise)
	api.GET("/franchises/:id/status", s.GetFranchiseStatus)
	api.GET("/franchises/:id/ownerships", s.ListOwnershipHistory)
	api.GET("/franchises/:id/units", s.ListUnitHistory)
	api.GET("/franchises/:id/complaints", s.ListFranchiseComplaints)
	api.GET("/franchises/:id/consistency", s.CheckFranchiseConsistency)
	api.POST("/franchises/:id/transfer-ownership", s.TransferOwnership)
	api.POST("/franchises/:id/change-unit", s.ChangeActiveUnit)

	api.GET("/applications", s.ListApplications)
	api.POST("/applications", s.SubmitApplication)
	api.GET("/applications/:id", s.GetApplication)
	api.POST("/applications/:id/review", s.ReviewApplication)
	api.POST("/applications/:id/approve", s.ApproveApplication)
	api.POST("/applications/:id/reject", s.RejectApplication)
	api.POST("/applications/:id/return", s.ReturnApplication)
	api.POST("/applications/:id/resubmit", s.ResubmitApplication)
	api.POST("/applications/:id/complete", s.CompleteApplication)
	api.POST("/applications/:id/cancel", s.CancelApplication)

	api.POST("/complaints", s.FileComplaint)
	api.POST("/complaints/:id/resolve", s.ResolveComplaint)

	api.GET("/operators", s.ListOperators)
	api.POST("/operators", s.CreateOperator)
	api.GET("/units", s.ListUnits)
	api.POST("/units", s.CreateUnit)
	api.GET("/zones", s.ListZones)
	api.POST("/zones", s.CreateZone)

	api.GET("/settings", s.GetSettings)
	api.PATCH("/settings", s.UpdateSettings)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
