package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"cloud.google.com/go/profiler"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/taskistation/todo-backend/pkg/auth"
	"github.com/taskistation/todo-backend/pkg/communication"
	"github.com/taskistation/todo-backend/pkg/email"
	"github.com/taskistation/todo-backend/pkg/environment"
	"github.com/taskistation/todo-backend/pkg/locking"
	"github.com/taskistation/todo-backend/pkg/logger"
	"github.com/taskistation/todo-backend/pkg/notifications"
	"github.com/taskistation/todo-backend/pkg/parsing"
	"github.com/taskistation/todo-backend/pkg/scheduler"
	"github.com/taskistation/todo-backend/pkg/todos"
	"github.com/taskistation/todo-backend/pkg/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const profileCacheSize = 1000

func main() {
	environment.Initialize()
	env := environment.Global

	var logging logger.Interface = logger.Logger{}
	if env.IsProduction() {
		cloudLogger, err := logger.NewGoogleCloudLogger(context.Background(), env.GCPProjectID, "todo-backend")
		if err != nil {
			log.Fatal(err)
		}
		defer cloudLogger.Close()
		logging = cloudLogger

		err = profiler.Start(profiler.Config{
			Service:   "todo-backend",
			ProjectID: env.GCPProjectID,
		})
		if err != nil {
			logging.Error("could not start profiler", err)
		}
	}

	logging.Info("Server is starting up...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(env.DatabaseURL))
	if err != nil {
		logging.Fatal(err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		logging.Fatal(err)
	}

	defer func() {
		err := client.Disconnect(context.Background())
		if err != nil {
			logging.Fatal(err)
		}
	}()

	logging.Info("Database connected")

	db := client.Database(env.Database)

	userRepository := &users.UserRepository{DB: db.Collection("Users"), Logger: logging}
	preferencesRepository := &users.MongoDBPreferencesRepository{DB: db.Collection("Preferences"), Logger: logging}
	todoRepository := &todos.MongoDBTodoRepository{DB: db.Collection("Todos"), Logger: logging}
	sampleRepository := &scheduler.MongoDBSampleRepository{DB: db.Collection("ProductivitySamples"), Logger: logging}

	err = todoRepository.EnsureIndexes(ctx)
	if err != nil {
		logging.Fatal(err)
	}

	err = sampleRepository.EnsureIndexes(ctx)
	if err != nil {
		logging.Fatal(err)
	}

	var locker locking.LockerInterface
	var profileCache scheduler.ProfileCacheInterface

	if env.Redis != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     env.Redis,
			Password: env.RedisPassword,
		})

		err = redisClient.Ping(ctx).Err()
		if err != nil {
			logging.Fatal(err)
		}

		locker = locking.NewLockerRedis(redisClient)
		profileCache = scheduler.NewProfileCacheRedis(redisClient, scheduler.ProfileCacheTTL)
		logging.Info("Redis connected")
	} else {
		locker = locking.NewLockerMemory()
		profileCache, err = scheduler.NewProfileCacheMemory(profileCacheSize, scheduler.ProfileCacheTTL)
		if err != nil {
			logging.Fatal(err)
		}
	}

	var notifier notifications.Notifier = &notifications.LogNotifier{Logger: logging}
	if env.Firebase != "" {
		firebaseNotifier, err := notifications.NewFirebaseNotifier(ctx, env.Firebase, env.GCPProjectID, logging)
		if err != nil {
			logging.Fatal(err)
		}
		notifier = firebaseNotifier
	}

	var mailer email.Mailer
	if env.Sendinblue != "" {
		mailer = email.NewSendInBlueService(env.Sendinblue)
	}

	var taskParser parsing.TaskParser
	if env.OpenAIKey != "" {
		taskParser = parsing.NewOpenAITaskParser(parsing.Config{
			APIKey:  env.OpenAIKey,
			BaseURL: env.OpenAIBaseURL,
			Model:   env.OpenAIModel,
		}, logging)
	}

	responseManager := &communication.ResponseManager{Logger: logging}

	defaults := scheduler.NewDefaults()
	analyzer := scheduler.NewAnalyzer(sampleRepository, profileCache, defaults, logging)
	recorder := scheduler.NewRecorder(sampleRepository, userRepository, analyzer, defaults, logging)
	engine := scheduler.NewEngine(analyzer, &scheduler.RepositoryPreferencesProvider{Repository: preferencesRepository},
		defaults, logging)

	todoService := todos.NewService(todoRepository, locker, logging)
	todoService.Observe(recorder)

	userHandler := users.Handler{
		UserRepository:        userRepository,
		PreferencesRepository: preferencesRepository,
		Logger:                logging,
		ResponseManager:       responseManager,
		Secret:                env.Secret,
		EmailService:          mailer,
	}

	todoHandler := todos.Handler{
		Service:         todoService,
		TodoRepository:  todoRepository,
		TaskParser:      taskParser,
		Logger:          logging,
		ResponseManager: responseManager,
	}

	schedulerHandler := scheduler.Handler{
		TodoService:     todoService,
		UserRepository:  userRepository,
		Engine:          engine,
		Recorder:        recorder,
		Logger:          logging,
		ResponseManager: responseManager,
	}

	notificationHandler := notifications.Handler{
		Notifier:        notifier,
		TodoService:     todoService,
		TodoRepository:  todoRepository,
		UserRepository:  userRepository,
		Logger:          logging,
		ResponseManager: responseManager,
	}

	authMiddleWare := auth.AuthenticationMiddleware{ResponseManager: responseManager, Secret: env.Secret}

	r := mux.NewRouter()
	r.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)

		_, err := fmt.Fprint(writer, "Welcome to the API!")
		if err != nil {
			logging.Error("could not write welcome message", err)
		}
	})

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/auth/register", userHandler.UserRegister).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/auth/login", userHandler.UserLogin).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/auth/refresh", userHandler.UserRefresh).Methods(http.MethodPost, http.MethodOptions)

	authenticated := v1.PathPrefix("").Subrouter()
	authenticated.Use(authMiddleWare.Middleware)

	authenticated.HandleFunc("/user", userHandler.UserGet).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/user", userHandler.UserUpdate).Methods(http.MethodPatch, http.MethodOptions)
	authenticated.HandleFunc("/user/settings", userHandler.UserSettingsPatch).Methods(http.MethodPatch, http.MethodOptions)
	authenticated.HandleFunc("/user/devices", userHandler.UserAddDevice).Methods(http.MethodPost, http.MethodOptions)
	authenticated.HandleFunc("/user/devices/{deviceToken}", userHandler.UserRemoveDevice).Methods(http.MethodDelete, http.MethodOptions)
	authenticated.HandleFunc("/user/preferences", userHandler.PreferencesGet).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/user/preferences", userHandler.PreferencesUpdate).Methods(http.MethodPut, http.MethodOptions)

	// Static todo routes are registered before the {todoID} routes
	authenticated.HandleFunc("/todos", todoHandler.TodoAdd).Methods(http.MethodPost, http.MethodOptions)
	authenticated.HandleFunc("/todos", todoHandler.TodoList).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/todos/stats", todoHandler.TodoStats).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/todos/summary", todoHandler.TodoSummary).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/todos/{todoID}", todoHandler.TodoGet).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/todos/{todoID}", todoHandler.TodoUpdate).Methods(http.MethodPatch, http.MethodOptions)
	authenticated.HandleFunc("/todos/{todoID}", todoHandler.TodoDelete).Methods(http.MethodDelete, http.MethodOptions)
	authenticated.HandleFunc("/todos/{todoID}/status", todoHandler.TodoStatusUpdate).Methods(http.MethodPatch, http.MethodOptions)
	authenticated.HandleFunc("/todos/{todoID}/history", todoHandler.TodoStatusHistory).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/todos/{todoID}/subtasks/suggestions", todoHandler.SubtaskSuggestions).Methods(http.MethodPost, http.MethodOptions)

	authenticated.HandleFunc("/scheduler/start-task/{todoID}", schedulerHandler.StartTask).Methods(http.MethodPatch, http.MethodOptions)
	authenticated.HandleFunc("/scheduler/schedule/{todoID}", schedulerHandler.ScheduleTask).Methods(http.MethodPatch, http.MethodOptions)
	authenticated.HandleFunc("/scheduler/recommendations/{todoID}", schedulerHandler.Recommendations).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/scheduler/record-productivity/{todoID}", schedulerHandler.RecordProductivity).Methods(http.MethodPost, http.MethodOptions)

	authenticated.HandleFunc("/notifications/test", notificationHandler.SendTest).Methods(http.MethodPost, http.MethodOptions)
	authenticated.HandleFunc("/notifications/due-tasks", notificationHandler.SendDueTasks).Methods(http.MethodPost, http.MethodOptions)
	authenticated.HandleFunc("/notifications/reminder/{todoID}", notificationHandler.SendReminder).Methods(http.MethodPost, http.MethodOptions)

	r.Use(mux.CORSMethodMiddleware(r))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", env.Cors)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	logging.Info(fmt.Sprintf("Listening on port %s", env.Port))
	logging.Fatal(http.ListenAndServe(":"+env.Port, r))
}
